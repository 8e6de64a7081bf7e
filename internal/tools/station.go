package tools

// DefaultRegistry returns the built-in station actions the terminal UI can
// trigger. Increments are fixed per action; the engine applies them on the
// abbreviated tool-call path.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(&Tool{
		Name:        "sonar_zoom",
		Description: "Zoom the sonar display onto the nearest large return.",
		Schema: Schema{
			Required: []string{"target"},
			Properties: map[string]Property{
				"target": {Type: "string", Description: "Sonar contact label to zoom on."},
				"level":  {Type: "integer", Description: "Zoom level 1-4.", Default: 2},
			},
		},
		ConfidenceBoost: 5,
	})

	r.MustRegister(&Tool{
		Name:        "ping_sonar",
		Description: "Send a single active sonar ping and wait for returns.",
		Schema: Schema{
			Required:   []string{},
			Properties: map[string]Property{},
		},
		HasSideEffects:  true,
		ConfidenceBoost: 3,
	})

	r.MustRegister(&Tool{
		Name:        "view_specimen",
		Description: "Bring a specimen tank camera onto the main display.",
		Schema: Schema{
			Required: []string{"tank"},
			Properties: map[string]Property{
				"tank": {Type: "integer", Description: "Tank number.", Enum: []any{1, 2, 3}},
			},
		},
		ConfidenceBoost: 4,
	})

	r.MustRegister(&Tool{
		Name:        "toggle_floodlights",
		Description: "Toggle the exterior floodlights. Mira prefers them off.",
		Schema: Schema{
			Required:   []string{},
			Properties: map[string]Property{},
		},
		HasSideEffects:  true,
		ConfidenceBoost: 2,
	})

	return r
}
