package engine

// Exports names the guest functions the host binds.
type Exports struct {
	ConstantProbe   string
	ArrayProbe      string
	ArrayData       string
	ArrayLength     string
	NewArray        string
	FreeArray       string
	MakeGameState   string
	PixelData       string
	RenderGame      string
	TranslateCamera string
	RotateCamera    string
}

// DefaultExports returns the export names of the reference guest.
func DefaultExports() Exports {
	return Exports{
		ConstantProbe:   "test_return_5",
		ArrayProbe:      "test_return_arr",
		ArrayData:       "get_array_data",
		ArrayLength:     "get_array_length",
		NewArray:        "new_uint8_arr",
		FreeArray:       "free_uint8_arr",
		MakeGameState:   "make_game_state",
		PixelData:       "get_pixel_data",
		RenderGame:      "render_game",
		TranslateCamera: "translate_camera",
		RotateCamera:    "rotate_camera",
	}
}

// withDefaults fills empty names from DefaultExports.
func (x Exports) withDefaults() Exports {
	d := DefaultExports()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&x.ConstantProbe, d.ConstantProbe)
	fill(&x.ArrayProbe, d.ArrayProbe)
	fill(&x.ArrayData, d.ArrayData)
	fill(&x.ArrayLength, d.ArrayLength)
	fill(&x.NewArray, d.NewArray)
	fill(&x.FreeArray, d.FreeArray)
	fill(&x.MakeGameState, d.MakeGameState)
	fill(&x.PixelData, d.PixelData)
	fill(&x.RenderGame, d.RenderGame)
	fill(&x.TranslateCamera, d.TranslateCamera)
	fill(&x.RotateCamera, d.RotateCamera)
	return x
}

// Required returns the exports that must exist at load time: the array ABI
// and the lifecycle probes.
func (x Exports) Required() []string {
	return []string{x.ArrayData, x.ArrayLength, x.NewArray, x.FreeArray, x.ConstantProbe, x.ArrayProbe}
}

// Game returns the exports a game session needs.
func (x Exports) Game() []string {
	return []string{x.MakeGameState, x.PixelData, x.RenderGame, x.TranslateCamera, x.RotateCamera}
}
