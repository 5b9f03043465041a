package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNotInitialized       = errors.New("canvas is not initialized")
	ErrElementNotFound      = errors.New("canvas element not found")
	ErrConfirmationRequired = errors.New("deleting this layer needs confirmation")
	ErrInvalidOpacity       = errors.New("opacity must be between 0 and 1")
	ErrInvalidSize          = errors.New("canvas size must be positive")
)

const assetLoadConcurrency = 4

// Option configures an Editor
type Option func(*Editor)

// WithLoader sets the asset loader. The default reads URLs and local files.
func WithLoader(l AssetLoader) Option {
	return func(e *Editor) { e.loader = l }
}

// WithNotifier sets the callback told about failed asset loads
func WithNotifier(n Notifier) Option {
	return func(e *Editor) { e.notify = n }
}

// WithHistoryCapacity bounds the undo history
func WithHistoryCapacity(n int) Option {
	return func(e *Editor) { e.history = NewHistory(n) }
}

// Editor holds one canvas document and its edit history
type Editor struct {
	doc         Document
	images      map[string]image.Image
	history     *History
	loader      AssetLoader
	notify      Notifier
	decorations int
	ready       bool
}

// New creates an empty editor. Call Init before editing.
func New(opts ...Option) *Editor {
	e := &Editor{
		images:  make(map[string]image.Image),
		history: NewHistory(DefaultHistoryCapacity),
		loader:  DefaultLoader{},
		notify: func(id string, err error) {
			log.Printf("canvas asset %s failed to load: %v", id, err)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init lays out the standard layers and loads their assets concurrently.
// A failed asset is reported to the notifier and its layer stays without an image.
func (e *Editor) Init(ctx context.Context, width, height int, brand Brand) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}

	doc := Document{Width: width, Height: height, Elements: standardElements(width, height, brand)}

	type loaded struct {
		img image.Image
		err error
	}
	results := make([]loaded, len(doc.Elements))

	var g errgroup.Group
	g.SetLimit(assetLoadConcurrency)
	for i, el := range doc.Elements {
		if el.Type != ElementImage || el.Src == "" {
			continue
		}
		g.Go(func() error {
			img, err := e.loader.Load(ctx, el.Src)
			results[i] = loaded{img: img, err: err}
			return nil
		})
	}
	_ = g.Wait()

	// A cancelled Init leaves the previous session in place
	if err := ctx.Err(); err != nil {
		return err
	}

	images := make(map[string]image.Image)
	for i, el := range doc.Elements {
		switch r := results[i]; {
		case r.err != nil:
			e.notify(el.ID, r.err)
		case r.img != nil:
			images[el.ID] = r.img
		}
	}

	e.doc = doc
	e.images = images
	e.decorations = 0
	e.ready = true
	e.history.Reset(e.snapshot())
	return nil
}

// Document returns a copy of the current document
func (e *Editor) Document() Document { return e.doc.clone() }

// Element returns a copy of one element
func (e *Editor) Element(id string) (Element, bool) {
	i := e.doc.index(id)
	if i < 0 {
		return Element{}, false
	}
	return e.doc.Elements[i], true
}

// Snapshot serializes the document. Equal documents give identical bytes.
func (e *Editor) Snapshot() []byte { return e.snapshot() }

// HasImage reports whether the asset behind id was loaded
func (e *Editor) HasImage(id string) bool {
	_, ok := e.images[id]
	return ok
}

func (e *Editor) SetVisible(id string, visible bool) error {
	return e.edit(id, func(el *Element) error {
		el.Visible = visible
		return nil
	})
}

// SetLocked toggles whether the element can be selected
func (e *Editor) SetLocked(id string, locked bool) error {
	return e.edit(id, func(el *Element) error {
		el.Locked = locked
		return nil
	})
}

func (e *Editor) SetOpacity(id string, opacity float64) error {
	if opacity < 0 || opacity > 1 {
		return ErrInvalidOpacity
	}
	return e.edit(id, func(el *Element) error {
		el.Opacity = opacity
		return nil
	})
}

// Move places the element's top left corner at x, y
func (e *Editor) Move(id string, x, y float64) error {
	return e.edit(id, func(el *Element) error {
		el.Geometry.X, el.Geometry.Y = round(x), round(y)
		return nil
	})
}

func (e *Editor) Resize(id string, width, height float64) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	return e.edit(id, func(el *Element) error {
		el.Geometry.Width, el.Geometry.Height = round(width), round(height)
		return nil
	})
}

// SetText replaces the text of a text element
func (e *Editor) SetText(id, text string) error {
	return e.edit(id, func(el *Element) error {
		if el.Type != ElementText {
			return fmt.Errorf("%s is not a text element", id)
		}
		el.Text = text
		return nil
	})
}

// ShiftZ moves an element delta places up (positive) or down the stack, clamped to the ends
func (e *Editor) ShiftZ(id string, delta int) error {
	if !e.ready {
		return ErrNotInitialized
	}
	from := e.doc.index(id)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	to := min(max(from+delta, 0), len(e.doc.Elements)-1)
	if to == from {
		return nil
	}

	el := e.doc.Elements[from]
	elements := append(e.doc.Elements[:from:from], e.doc.Elements[from+1:]...)
	elements = append(elements[:to], append([]Element{el}, elements[to:]...)...)
	e.doc.Elements = elements
	e.commit()
	return nil
}

// AddDecorativeImage loads src and adds it on top as decorative-image-N
func (e *Editor) AddDecorativeImage(ctx context.Context, src string, g Geometry) (string, error) {
	if !e.ready {
		return "", ErrNotInitialized
	}
	img, err := e.loader.Load(ctx, src)
	if err != nil {
		e.notify(decorativeID(e.decorations+1), err)
		return "", err
	}

	e.decorations++
	id := decorativeID(e.decorations)
	e.doc.Elements = append(e.doc.Elements, Element{
		ID:       id,
		Type:     ElementImage,
		Visible:  true,
		Opacity:  1,
		Geometry: Geometry{X: round(g.X), Y: round(g.Y), Width: round(g.Width), Height: round(g.Height)},
		Src:      src,
	})
	e.images[id] = img
	e.commit()
	return id, nil
}

// Delete removes an element. Standard mail merge layers return
// ErrConfirmationRequired unless confirmed is set.
func (e *Editor) Delete(id string, confirmed bool) error {
	if !e.ready {
		return ErrNotInitialized
	}
	i := e.doc.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if RequiresDeleteConfirmation(id) && !confirmed {
		return ErrConfirmationRequired
	}

	e.doc.Elements = append(e.doc.Elements[:i:i], e.doc.Elements[i+1:]...)
	e.commit()
	return nil
}

func (e *Editor) Undo() bool {
	snapshot, ok := e.history.Undo()
	if ok {
		e.restore(snapshot)
	}
	return ok
}

func (e *Editor) Redo() bool {
	snapshot, ok := e.history.Redo()
	if ok {
		e.restore(snapshot)
	}
	return ok
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// Personalize returns a copy of the document with every {{tag}} in text layers
// replaced from vars. The editor state and history are untouched.
func (e *Editor) Personalize(vars map[string]string) Document {
	return personalize(e.doc, vars)
}

func personalize(doc Document, vars map[string]string) Document {
	out := doc.clone()
	if len(vars) == 0 {
		return out
	}
	pairs := make([]string, 0, len(vars)*2)
	for tag, value := range vars {
		pairs = append(pairs, Placeholder(tag), value)
	}
	replacer := strings.NewReplacer(pairs...)
	for i := range out.Elements {
		if out.Elements[i].Type == ElementText {
			out.Elements[i].Text = replacer.Replace(out.Elements[i].Text)
		}
	}
	return out
}

func (e *Editor) edit(id string, fn func(*Element) error) error {
	if !e.ready {
		return ErrNotInitialized
	}
	i := e.doc.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}

	el := e.doc.Elements[i]
	if err := fn(&el); err != nil {
		return err
	}
	if el == e.doc.Elements[i] {
		return nil
	}
	e.doc.Elements[i] = el
	e.commit()
	return nil
}

func (e *Editor) commit() {
	e.history.Push(e.snapshot())
}

func (e *Editor) snapshot() []byte {
	raw, err := json.Marshal(e.doc)
	if err != nil {
		// Document holds only strings, numbers and bools
		panic(fmt.Sprintf("canvas: marshal document: %v", err))
	}
	return raw
}

func (e *Editor) restore(snapshot []byte) {
	var doc Document
	if err := json.Unmarshal(snapshot, &doc); err != nil {
		panic(fmt.Sprintf("canvas: corrupt history snapshot: %v", err))
	}
	e.doc = doc
}
