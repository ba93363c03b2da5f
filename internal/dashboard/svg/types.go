package svg

// AreaOpts customises the revenue area chart renderer.
type AreaOpts struct {
	Title         string
	Description   string
	CurrentLabel  string
	PreviousLabel string
	CurrentColor  string
	PreviousColor string
	FillColor     string
	AxisColor     string
	GridColor     string
	Padding       float64
	TickCount     int
	// Estimated marks points drawn with a hollow marker. It must be empty or
	// match the series length.
	Estimated []bool
}

// Defaults for the dashboard charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 32.0
	DefaultTicks   = 5
)
