package frame

// Stripe is a horizontal band of a frame.
// It owns rows [Start, End) and borrows Top rows above and Bottom rows
// below as read-only context for the kernel. A stripe never outlives
// the frame it points into.
type Stripe struct {
	Index  int
	Start  int
	End    int
	Top    int
	Bottom int

	src *Frame
}

func NewStripe(src *Frame, index, start, end, top, bottom int) Stripe {
	return Stripe{Index: index, Start: start, End: end, Top: top, Bottom: bottom, src: src}
}

// Rows is the number of rows including halos.
func (s Stripe) Rows() int { return s.End - s.Start + s.Top + s.Bottom }

func (s Stripe) Width() int { return s.src.Width }

// Frame returns the stripe rows, halos included, as a frame that shares
// memory with the source.
func (s Stripe) Frame() Frame {
	stride := s.src.Stride()
	from, to := (s.Start-s.Top)*stride, (s.End+s.Bottom)*stride
	return Frame{Width: s.src.Width, Height: s.Rows(), Channels: s.src.Channels, Data: s.src.Data[from:to:to]}
}
