package canvas

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBrand = Brand{
	Headline:      "Spring tune-up special",
	Message:       "Hi {{customer-name}}, book before May 1st.",
	Phone:         "(555) 010-2030",
	BackgroundSrc: "bg.png",
	LogoSrc:       "logo.png",
	QRCodeSrc:     "qr.png",
}

type recordedFailure struct {
	id  string
	err error
}

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func stubLoader(failing ...string) AssetLoader {
	return AssetLoaderFunc(func(_ context.Context, src string) (image.Image, error) {
		for _, f := range failing {
			if f == src {
				return nil, errors.New("404 not found")
			}
		}
		return solid(color.RGBA{R: 200, A: 255}), nil
	})
}

func newEditor(t *testing.T, opts ...Option) *Editor {
	t.Helper()
	e := New(append([]Option{WithLoader(stubLoader())}, opts...)...)
	require.NoError(t, e.Init(context.Background(), 600, 400, testBrand))
	return e
}

func TestInit_StandardLayers(t *testing.T) {
	e := newEditor(t)
	doc := e.Document()

	ids := make([]string, len(doc.Elements))
	for i, el := range doc.Elements {
		ids[i] = el.ID
	}
	assert.Equal(t, []string{BackgroundID, LogoID, HeadlineID, MessageID, QRCodeID, CustomerNameID, CustomerAddressID, PhoneNumberID}, ids)

	bg, _ := e.Element(BackgroundID)
	assert.True(t, bg.Locked)
	assert.False(t, bg.Selectable())
	assert.Equal(t, Geometry{Width: 600, Height: 400}, bg.Geometry)

	logo, _ := e.Element(LogoID)
	assert.Equal(t, Geometry{X: 30, Y: 20, Width: 120, Height: 60}, logo.Geometry)

	name, _ := e.Element(CustomerNameID)
	assert.Equal(t, "{{customer-name}}", name.Text)

	assert.True(t, e.HasImage(BackgroundID))
	assert.False(t, e.CanUndo())
}

func TestInit_RejectsEmptyCanvas(t *testing.T) {
	assert.ErrorIs(t, New().Init(context.Background(), 0, 400, testBrand), ErrInvalidSize)
}

func TestInit_PartialAssetFailure(t *testing.T) {
	var mu sync.Mutex
	var failures []recordedFailure

	e := New(
		WithLoader(stubLoader("logo.png", "qr.png")),
		WithNotifier(func(id string, err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, recordedFailure{id, err})
		}),
	)
	require.NoError(t, e.Init(context.Background(), 600, 400, testBrand))

	require.Len(t, failures, 2)
	assert.Equal(t, LogoID, failures[0].id)
	assert.Equal(t, QRCodeID, failures[1].id)

	assert.True(t, e.HasImage(BackgroundID))
	assert.False(t, e.HasImage(LogoID))
	_, ok := e.Element(LogoID)
	assert.True(t, ok, "failed layer stays in the document")

	require.NoError(t, e.SetOpacity(LogoID, 0.5))
}

func TestInit_CancelledKeepsPreviousSession(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.SetOpacity(LogoID, 0.5))
	before := e.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, e.Init(ctx, 1200, 800, testBrand), context.Canceled)

	assert.Equal(t, before, e.Snapshot())
	assert.Equal(t, 600, e.Document().Width)
	assert.True(t, e.HasImage(LogoID))

	// history still belongs to the first session
	require.True(t, e.Undo())
	logo, _ := e.Element(LogoID)
	assert.Equal(t, 1.0, logo.Opacity)
	assert.Equal(t, 600, e.Document().Width)
	assert.False(t, e.CanUndo())
}

func TestInit_CancelledBeforeFirstSession(t *testing.T) {
	e := New(WithLoader(stubLoader()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, e.Init(ctx, 600, 400, testBrand), context.Canceled)
	assert.ErrorIs(t, e.SetVisible(LogoID, false), ErrNotInitialized)
	assert.Empty(t, e.Document().Elements)
}

func TestEditor_NotInitialized(t *testing.T) {
	e := New()
	assert.ErrorIs(t, e.SetVisible(LogoID, false), ErrNotInitialized)
	assert.ErrorIs(t, e.Delete(LogoID, true), ErrNotInitialized)
	_, err := e.Export(ExportOptions{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestEditor_UndoRestoresInitialSnapshot(t *testing.T) {
	e := newEditor(t)
	initial := e.Snapshot()

	ctx := context.Background()
	edits := []func() error{
		func() error { return e.SetVisible(LogoID, false) },
		func() error { return e.SetLocked(HeadlineID, true) },
		func() error { return e.SetOpacity(QRCodeID, 0.4) },
		func() error { return e.Move(MessageID, 12.345, 80) },
		func() error { return e.Resize(LogoID, 150, 75) },
		func() error { return e.ShiftZ(LogoID, 3) },
		func() error { _, err := e.AddDecorativeImage(ctx, "star.png", Geometry{X: 10, Y: 10, Width: 40, Height: 40}); return err },
		func() error { return e.SetText(HeadlineID, "Fall sale") },
		func() error { return e.Delete(PhoneNumberID, true) },
	}
	for _, edit := range edits {
		require.NoError(t, edit())
	}
	edited := e.Snapshot()
	require.NotEqual(t, initial, edited)

	for range edits {
		require.True(t, e.Undo())
	}
	assert.Equal(t, initial, e.Snapshot())
	assert.False(t, e.Undo())

	for range edits {
		require.True(t, e.Redo())
	}
	assert.Equal(t, edited, e.Snapshot())
	assert.False(t, e.Redo())
}

func TestEditor_EditAfterUndoDropsRedo(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.SetVisible(LogoID, false))
	require.True(t, e.Undo())
	require.True(t, e.CanRedo())

	require.NoError(t, e.SetOpacity(LogoID, 0.7))
	assert.False(t, e.CanRedo())
}

func TestEditor_NoOpEditsSkipHistory(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.SetVisible(LogoID, true))
	require.NoError(t, e.ShiftZ(BackgroundID, -1))
	assert.False(t, e.CanUndo())
}

func TestEditor_HistoryIsBounded(t *testing.T) {
	e := newEditor(t)
	for i := 0; i < DefaultHistoryCapacity+10; i++ {
		require.NoError(t, e.Move(LogoID, float64(i+1), 0))
	}

	undos := 0
	for e.Undo() {
		undos++
	}
	assert.Equal(t, DefaultHistoryCapacity-1, undos)

	logo, _ := e.Element(LogoID)
	assert.Equal(t, float64(11), logo.Geometry.X, "oldest snapshots were evicted")
}

func TestEditor_Validation(t *testing.T) {
	e := newEditor(t)
	assert.ErrorIs(t, e.SetOpacity(LogoID, 1.2), ErrInvalidOpacity)
	assert.ErrorIs(t, e.SetOpacity(LogoID, -0.1), ErrInvalidOpacity)
	assert.ErrorIs(t, e.Resize(LogoID, 0, 10), ErrInvalidSize)
	assert.ErrorIs(t, e.Move("missing", 1, 1), ErrElementNotFound)
	assert.Error(t, e.SetText(LogoID, "not text"))
	assert.False(t, e.CanUndo())
}

func TestEditor_ShiftZClamps(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.ShiftZ(LogoID, 100))

	doc := e.Document()
	assert.Equal(t, LogoID, doc.Elements[len(doc.Elements)-1].ID)

	require.NoError(t, e.ShiftZ(LogoID, -100))
	assert.Equal(t, LogoID, e.Document().Elements[0].ID)
}

func TestEditor_DeleteConfirmation(t *testing.T) {
	e := newEditor(t)

	for _, id := range []string{LogoID, BackgroundID, MessageID, QRCodeID, CustomerNameID, CustomerAddressID, PhoneNumberID} {
		assert.True(t, RequiresDeleteConfirmation(id), id)
		assert.ErrorIs(t, e.Delete(id, false), ErrConfirmationRequired, id)
		_, ok := e.Element(id)
		assert.True(t, ok, "%s must survive an unconfirmed delete", id)
	}

	require.NoError(t, e.Delete(LogoID, true))
	_, ok := e.Element(LogoID)
	assert.False(t, ok)

	id, err := e.AddDecorativeImage(context.Background(), "star.png", Geometry{Width: 20, Height: 20})
	require.NoError(t, err)
	assert.Equal(t, "decorative-image-1", id)
	assert.True(t, IsDecorative(id))
	assert.False(t, RequiresDeleteConfirmation(id))
	require.NoError(t, e.Delete(id, false))

	second, err := e.AddDecorativeImage(context.Background(), "moon.png", Geometry{Width: 20, Height: 20})
	require.NoError(t, err)
	assert.Equal(t, "decorative-image-2", second)

	assert.ErrorIs(t, e.Delete("decorative-image-9", true), ErrElementNotFound)
}

func TestEditor_AddDecorativeImageFailure(t *testing.T) {
	var failed string
	e := New(WithLoader(stubLoader("broken.png")), WithNotifier(func(id string, _ error) { failed = id }))
	require.NoError(t, e.Init(context.Background(), 600, 400, testBrand))

	_, err := e.AddDecorativeImage(context.Background(), "broken.png", Geometry{Width: 10, Height: 10})
	require.Error(t, err)
	assert.Equal(t, "decorative-image-1", failed)
	assert.False(t, e.CanUndo())
}

func TestEditor_PersonalizeLeavesHistory(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.SetVisible(QRCodeID, false))
	before := e.Snapshot()

	doc := e.Personalize(map[string]string{
		CustomerNameID:    "Dana Reyes",
		CustomerAddressID: "12 Elm St, Fresno, CA",
	})

	byID := map[string]Element{}
	for _, el := range doc.Elements {
		byID[el.ID] = el
	}
	assert.Equal(t, "Dana Reyes", byID[CustomerNameID].Text)
	assert.Equal(t, "12 Elm St, Fresno, CA", byID[CustomerAddressID].Text)
	assert.Equal(t, "Hi Dana Reyes, book before May 1st.", byID[MessageID].Text)

	assert.Equal(t, before, e.Snapshot())
	name, _ := e.Element(CustomerNameID)
	assert.Equal(t, "{{customer-name}}", name.Text)

	require.True(t, e.Undo())
	assert.False(t, e.CanUndo())
}

func TestEditor_Export(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.SetVisible(LogoID, false))

	raw, err := e.Export(ExportOptions{Scale: 0.5, Vars: map[string]string{CustomerNameID: "Dana"}})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 200), img.Bounds())

	full := e.Render(ExportOptions{})
	assert.Equal(t, image.Rect(0, 0, 600, 400), full.Bounds())
	r, _, _, a := full.At(300, 200).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, r, uint32(0x8000), "background asset is drawn")
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"book before", "May 1st."}, wrap("book before May 1st.", 11))
	assert.Equal(t, []string{"a", "", "b"}, wrap("a\n\nb", 10))
	assert.Equal(t, []string{"supercalifragilistic"}, wrap("supercalifragilistic", 5))
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}, parseHexColor(""))
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0x80, A: 0xff}, parseHexColor("#ff8000"))
	assert.Equal(t, parseHexColor(""), parseHexColor("nope"))
}

func TestDecodeAsset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(color.White)))

	img, format, err := DecodeAsset(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, _, err = DecodeAsset(strings.NewReader("not an image"))
	assert.Error(t, err)
}
