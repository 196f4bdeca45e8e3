package game

// Action is the closed set of decoded inputs a session can apply. The wire
// decoder produces these; the controller consumes them in arrival order.
type Action interface {
	action()
}

type AppendChar struct{ Ch rune }
type DeleteChar struct{}
type SubmitInput struct{}
type PointerMove struct{ X, Y int }
type PointerClick struct{ X, Y int }
type Quit struct{}
type BackToMenu struct{}
type Tick struct{}
type RequestReset struct{}
type ConfirmReset struct{}
type CancelReset struct{}
type Restart struct{}
type NavigateLeft struct{}
type NavigateRight struct{}
type ViewportResize struct{ Width, Height int }

func (AppendChar) action()     {}
func (DeleteChar) action()     {}
func (SubmitInput) action()    {}
func (PointerMove) action()    {}
func (PointerClick) action()   {}
func (Quit) action()           {}
func (BackToMenu) action()     {}
func (Tick) action()           {}
func (RequestReset) action()   {}
func (ConfirmReset) action()   {}
func (CancelReset) action()    {}
func (Restart) action()        {}
func (NavigateLeft) action()   {}
func (NavigateRight) action()  {}
func (ViewportResize) action() {}
