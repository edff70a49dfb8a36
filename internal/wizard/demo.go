package wizard

var demoSteps = []Step{
	{Title: "Original Receipt", Icon: "📄", Description: "Clean, straight receipt - our baseline"},
	{Title: "Angled Photo", Icon: "📐", Description: "Tilted 25° - typical phone photo"},
	{Title: "With Shadow", Icon: "🌓", Description: "Poor lighting conditions simulated"},
	{Title: "Cluttered Background", Icon: "🗂️", Description: "Real-world photo on desk surface"},
	{Title: "Edge Detection", Icon: "🔍", Description: "AI identifies document boundaries"},
	{Title: "Perspective Corrected", Icon: "📏", Description: "Document straightened automatically"},
	{Title: "Enhanced & Ready", Icon: "✨", Description: "Optimized for OCR text extraction"},
}

// Comparison is the before/after summary shown instead of the step view
type Comparison struct {
	Before []string
	After  []string
}

var demoComparison = Comparison{
	Before: []string{
		"Angled/tilted document",
		"Shadows and poor lighting",
		"Cluttered background",
		"OCR Accuracy: 30-40%",
	},
	After: []string{
		"Perfectly straightened",
		"Shadows removed",
		"Clean white background",
		"OCR Accuracy: 90-95%",
	},
}

// DemoSteps returns the document-scanning walkthrough
func DemoSteps() []Step {
	out := make([]Step, len(demoSteps))
	copy(out, demoSteps)
	return out
}

// Demo is the scanning walkthrough. Besides the step index it carries an
// independent comparison flag; hiding the comparison returns to the same step.
type Demo struct {
	engine            *Engine
	comparisonVisible bool
}

// NewDemo creates a Demo at the first step with the step view showing
func NewDemo() *Demo {
	engine, _ := NewEngine(demoSteps)
	return &Demo{engine: engine}
}

func (d *Demo) Engine() *Engine {
	return d.engine
}

func (d *Demo) Next() bool {
	return d.engine.Next()
}

func (d *Demo) Prev() bool {
	return d.engine.Prev()
}

// JumpTo moves directly to a step
func (d *Demo) JumpTo(index int) error {
	return d.engine.jumpTo(index)
}

func (d *Demo) ComparisonVisible() bool {
	return d.comparisonVisible
}

func (d *Demo) ShowComparison() {
	d.comparisonVisible = true
}

func (d *Demo) HideComparison() {
	d.comparisonVisible = false
}

func (d *Demo) ToggleComparison() {
	d.comparisonVisible = !d.comparisonVisible
}

// Comparison returns the before/after summary
func (d *Demo) Comparison() Comparison {
	return Comparison{
		Before: append([]string(nil), demoComparison.Before...),
		After:  append([]string(nil), demoComparison.After...),
	}
}
