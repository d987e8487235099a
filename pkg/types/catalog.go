package types

// Option is one selectable region or category, as offered to API clients.
type Option struct {
	Code  string `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
	Short string `json:"short" yaml:"short"`
}

// Hierarchy maps a parent region code to the child regions whose counts the
// publisher folds into the parent's raw figure.
type Hierarchy map[string][]string

// Children returns the declared children of region, or nil.
func (h Hierarchy) Children(region string) []string {
	return h[region]
}

// DefaultHierarchy is the parent/child layout of the regional bureaus and
// the airport and branch offices reported inside them.
func DefaultHierarchy() Hierarchy {
	return Hierarchy{
		"101170": {"101190", "101200", "101210"}, // Tokyo: Narita, Haneda, Yokohama
		"101460": {"101480", "101490"},           // Osaka: Kansai Airport, Kobe
		"101350": {"101370"},                     // Nagoya: Chubu Airport
		"101720": {"101740"},                     // Fukuoka: Naha
	}
}

// Categories lists the application categories in display order.
var Categories = []Option{
	{Code: "10", Label: "Status Acquisition", Short: "ACQ"},
	{Code: "20", Label: "Period Extension", Short: "EXT"},
	{Code: "30", Label: "Status Change", Short: "CHG"},
	{Code: "40", Label: "Extra-Status Activities", Short: "EXA"},
	{Code: "50", Label: "Re-entry", Short: "REE"},
	{Code: "60", Label: "Permanent Residence", Short: "PR"},
}

// CategoryCodes returns the fixed category codes in display order.
func CategoryCodes() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = c.Code
	}
	return out
}

// Regions lists the reporting regions, nationwide first.
var Regions = []Option{
	{Code: RegionNationwide, Label: "Nationwide", Short: "ALL"},
	{Code: "101010", Label: "Sapporo", Short: "CTS"},
	{Code: "101090", Label: "Sendai", Short: "SDJ"},
	{Code: "101170", Label: "Tokyo", Short: "TYO"},
	{Code: "101190", Label: "Narita Airport", Short: "NRT"},
	{Code: "101200", Label: "Haneda Airport", Short: "HND"},
	{Code: "101210", Label: "Yokohama", Short: "YOK"},
	{Code: "101350", Label: "Nagoya", Short: "NAG"},
	{Code: "101370", Label: "Chubu Airport", Short: "NGO"},
	{Code: "101460", Label: "Osaka", Short: "ITM"},
	{Code: "101480", Label: "Kansai Airport", Short: "KIX"},
	{Code: "101490", Label: "Kobe", Short: "UKB"},
	{Code: "101580", Label: "Hiroshima", Short: "HIJ"},
	{Code: "101670", Label: "Takamatsu", Short: "TAK"},
	{Code: "101720", Label: "Fukuoka", Short: "FUK"},
	{Code: "101740", Label: "Naha", Short: "OKA"},
}

// RegionLabel returns the display label for code, or code itself if unknown.
func RegionLabel(code string) string {
	for _, r := range Regions {
		if r.Code == code {
			return r.Label
		}
	}
	return code
}

// KnownRegion reports whether code is in the region catalog.
func KnownRegion(code string) bool {
	for _, r := range Regions {
		if r.Code == code {
			return true
		}
	}
	return false
}

// KnownCategory reports whether code is in the category catalog.
func KnownCategory(code string) bool {
	for _, c := range Categories {
		if c.Code == code {
			return true
		}
	}
	return false
}
