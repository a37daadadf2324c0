package game

// Camera step sizes applied per frame while a key is held.
const (
	MoveStep int32   = 50
	LookStep float32 = 0.1
)

// Controls is the per-frame camera input. A pressed key replaces the whole
// translation or look vector, and releasing any key of a group clears it.
type Controls struct {
	Translate [3]int32
	Look      [2]float32
}

type binding struct {
	translate [3]int32
	look      [2]float32
	move      bool
}

var bindings = map[string]binding{
	"w": {move: true, translate: [3]int32{0, MoveStep, 0}},
	"s": {move: true, translate: [3]int32{0, -MoveStep, 0}},
	"a": {move: true, translate: [3]int32{-MoveStep, 0, 0}},
	"d": {move: true, translate: [3]int32{MoveStep, 0, 0}},
	"q": {move: true, translate: [3]int32{0, 0, MoveStep}},
	"e": {move: true, translate: [3]int32{0, 0, -MoveStep}},

	"up":    {look: [2]float32{0, LookStep}},
	"down":  {look: [2]float32{0, -LookStep}},
	"left":  {look: [2]float32{-LookStep, 0}},
	"right": {look: [2]float32{LookStep, 0}},
}

var aliases = map[string]string{
	"ArrowUp":    "up",
	"ArrowDown":  "down",
	"ArrowLeft":  "left",
	"ArrowRight": "right",
}

func lookup(key string) (binding, bool) {
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	b, ok := bindings[key]
	return b, ok
}

// Press applies key and reports whether it is bound.
func (c *Controls) Press(key string) bool {
	b, ok := lookup(key)
	if !ok {
		return false
	}
	if b.move {
		c.Translate = b.translate
	} else {
		c.Look = b.look
	}
	return true
}

// Release clears the group key belongs to.
func (c *Controls) Release(key string) {
	b, ok := lookup(key)
	if !ok {
		return
	}
	if b.move {
		c.Translate = [3]int32{}
	} else {
		c.Look = [2]float32{}
	}
}

// Reset clears all input.
func (c *Controls) Reset() {
	*c = Controls{}
}

// Idle reports whether no input is active.
func (c Controls) Idle() bool {
	return c == Controls{}
}
