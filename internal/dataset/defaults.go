package dataset

const (
	// DefaultConditionURL is the PASER demo feature layer.
	DefaultConditionURL = "https://gis.horrocks.com/arcgis/rest/services/PavementDemo_MIL1/FeatureServer/0"
	// DefaultTreatmentURL is the recommended-treatment demo feature layer.
	DefaultTreatmentURL = "https://gis.horrocks.com/arcgis/rest/services/PavementDemo_MIL1/FeatureServer/1"
)

func line(color string) Style {
	return Style{Type: "simple-line", Color: color, Width: 2}
}

// Defaults returns the built-in descriptors for the PASER condition
// score and recommended treatment datasets.
func Defaults() Pair {
	return Pair{
		Condition: Descriptor{
			Kind:        Continuous,
			Title:       "Pavement Condition (PASER)",
			URL:         DefaultConditionURL,
			IDField:     "OBJECTID",
			StyledField: "CURRENT_PASER",
			TableFields: []string{"STREET_NAME", "FROM_STREET", "TO_STREET", "CURRENT_PASER", "LENGTH_FT"},
			Breaks: []Break{
				{Label: "1-2 (Poor)", Min: 1.0, Max: 2.99, Style: line("red")},
				{Label: "3-4 (Fair)", Min: 3.0, Max: 4.99, Style: line("yellow")},
				{Label: "5-6 (Good)", Min: 5.0, Max: 6.99, Style: line("orange")},
				{Label: "7-8 (Very Good)", Min: 7.0, Max: 8.99, Style: line("green")},
				{Label: "9-10 (Excellent)", Min: 9.0, Max: 10.0, Style: line("blue")},
			},
			Fallback: line("red"),
		},
		Treatment: Descriptor{
			Kind:        Discrete,
			Title:       "Recommended Treatments",
			URL:         DefaultTreatmentURL,
			IDField:     "OBJECTID",
			StyledField: "REC_TREATMENT",
			TableFields: []string{"STREET_NAME", "FROM_STREET", "TO_STREET", "REC_TREATMENT", "EST_COST"},
			Values: []Value{
				{Value: "CS", Label: "Crack Seal", Style: line("#1a9850")},
				{Value: "FS", Label: "Fog Seal", Style: line("#91cf60")},
				{Value: "SS", Label: "Slurry Seal", Style: line("#d9ef8b")},
				{Value: "OL", Label: "Overlay", Style: line("#fee08b")},
				{Value: "MO", Label: "Mill and Overlay", Style: line("#fc8d59")},
				{Value: "RC", Label: "Reconstruct", Style: line("#d73027")},
			},
			Fallback: line("gray"),
		},
	}
}
