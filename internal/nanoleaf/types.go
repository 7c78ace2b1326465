package nanoleaf

import (
	"encoding/json"
	"fmt"
)

// ShapeType identifies the kind of panel at a layout position.
type ShapeType int

const (
	ShapeHexagon          ShapeType = 7
	ShapeTriangle         ShapeType = 8
	ShapeMiniTriangle     ShapeType = 9
	ShapeShapesController ShapeType = 12
)

// String returns a human-readable shape name.
func (s ShapeType) String() string {
	switch s {
	case ShapeHexagon:
		return "hexagon"
	case ShapeTriangle:
		return "triangle"
	case ShapeMiniTriangle:
		return "mini-triangle"
	case ShapeShapesController:
		return "controller"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// PanelInfo is the device description returned by the root endpoint.
type PanelInfo struct {
	Name            string      `json:"name"`
	SerialNo        string      `json:"serialNo"`
	Manufacturer    string      `json:"manufacturer"`
	FirmwareVersion string      `json:"firmwareVersion"`
	HardwareVersion string      `json:"hardwareVersion"`
	Model           string      `json:"model"`
	Effects         Effects     `json:"effects"`
	PanelLayout     PanelLayout `json:"panelLayout"`
}

// Effects lists the installed effects and the one currently selected.
type Effects struct {
	EffectsList []string `json:"effectsList"`
	Select      string   `json:"select"`
}

// PanelLayout wraps the physical layout of the panels.
type PanelLayout struct {
	Layout Layout `json:"layout"`
}

// Layout describes panel count, size and positions.
type Layout struct {
	NumPanels    int             `json:"numPanels"`
	SideLength   int             `json:"sideLength"`
	PositionData []PanelPosition `json:"positionData"`
}

// PanelPosition is one panel's position and orientation. Coordinates are
// kept as json.Number because firmware versions disagree on int vs float.
type PanelPosition struct {
	PanelID   json.Number `json:"panelId"`
	X         json.Number `json:"x"`
	Y         json.Number `json:"y"`
	O         json.Number `json:"o"`
	ShapeType ShapeType   `json:"shapeType"`
}

// HSB is a colour in hue (0-360), saturation (0-100), brightness (0-100).
type HSB struct {
	Hue        int `json:"hue"`
	Saturation int `json:"saturation"`
	Brightness int `json:"brightness"`
}

// AnimType is the animation style of an effect.
type AnimType string

const (
	AnimSolid      AnimType = "solid"
	AnimStatic     AnimType = "static"
	AnimWheel      AnimType = "wheel"
	AnimExtControl AnimType = "extControl"
	AnimRandom     AnimType = "random"
	AnimFlow       AnimType = "flow"
	AnimFade       AnimType = "fade"
	AnimHighlight  AnimType = "highlight"
	AnimCustom     AnimType = "custom"
	AnimPlugin     AnimType = "plugin"
)

// ValidAnimType reports whether s names a known animation type.
func ValidAnimType(s string) bool {
	switch AnimType(s) {
	case AnimSolid, AnimStatic, AnimWheel, AnimExtControl, AnimRandom,
		AnimFlow, AnimFade, AnimHighlight, AnimCustom, AnimPlugin:
		return true
	}
	return false
}

// WriteCommand is the body of PUT /effects.
type WriteCommand struct {
	Write EffectCommand `json:"write"`
}

// EffectCommand is a write command. Only displayTemp is used here: it shows
// an effect for Duration seconds and then restores the previous one.
type EffectCommand struct {
	Command   string   `json:"command"`
	Duration  int      `json:"duration"`
	AnimType  AnimType `json:"animType"`
	Palette   []HSB    `json:"palette"`
	ColorType string   `json:"colorType"`
}

// DisplayTemp builds a temporary effect command.
func DisplayTemp(seconds int, anim AnimType, palette ...HSB) WriteCommand {
	return WriteCommand{
		Write: EffectCommand{
			Command:   "displayTemp",
			Duration:  seconds,
			AnimType:  anim,
			Palette:   palette,
			ColorType: "HSB",
		},
	}
}

type onValue struct {
	Value bool `json:"value"`
}

type stateRequest struct {
	On onValue `json:"on"`
}
