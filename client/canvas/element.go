// Package canvas composes postcard designs: a fixed set of standard layers for
// mail merge plus decorative images, with bounded undo history and PNG export.
// An Editor is owned by one goroutine and is not safe for concurrent use.
package canvas

import (
	"fmt"
	"math"
	"strings"
)

// ElementType says how an element is rendered
type ElementType string

const (
	ElementImage ElementType = "image"
	ElementText  ElementType = "text"
)

// Standard element ids. Each doubles as the mail merge tag of the element.
const (
	BackgroundID      = "background-image"
	LogoID            = "logo"
	HeadlineID        = "headline"
	MessageID         = "message"
	QRCodeID          = "qr-code"
	CustomerNameID    = "customer-name"
	CustomerAddressID = "customer-address"
	PhoneNumberID     = "phone-number"
)

const decorativePrefix = "decorative-image-"

// confirmDelete lists the layers mail merge depends on
var confirmDelete = map[string]bool{
	LogoID:            true,
	BackgroundID:      true,
	MessageID:         true,
	QRCodeID:          true,
	CustomerNameID:    true,
	CustomerAddressID: true,
	PhoneNumberID:     true,
}

// RequiresDeleteConfirmation reports whether deleting id must be confirmed first
func RequiresDeleteConfirmation(id string) bool {
	return confirmDelete[id]
}

// IsDecorative reports whether id names a user-added image
func IsDecorative(id string) bool {
	return strings.HasPrefix(id, decorativePrefix)
}

// Geometry places an element in canvas pixels
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one layer. Later elements are drawn on top.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	Locked   bool        `json:"locked"`
	Visible  bool        `json:"visible"`
	Opacity  float64     `json:"opacity"`
	Geometry Geometry    `json:"geometry"`
	Text     string      `json:"text,omitempty"`
	Src      string      `json:"src,omitempty"`
	Color    string      `json:"color,omitempty"`
}

// Selectable mirrors the lock flag: locked elements cannot be picked
func (e Element) Selectable() bool { return !e.Locked }

// Document is the serializable canvas state
type Document struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Elements []Element `json:"elements"`
}

func (d Document) clone() Document {
	cp := d
	cp.Elements = append([]Element(nil), d.Elements...)
	return cp
}

func (d Document) index(id string) int {
	for i, el := range d.Elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}

// Brand carries the content of the standard layers
type Brand struct {
	Headline      string
	Message       string
	Phone         string
	BackgroundSrc string
	LogoSrc       string
	QRCodeSrc     string
}

// Placeholder returns the merge marker for tag, e.g. {{customer-name}}
func Placeholder(tag string) string {
	return "{{" + tag + "}}"
}

// standardElements lays out the default postcard relative to its size
func standardElements(width, height int, b Brand) []Element {
	w, h := float64(width), float64(height)
	qr := math.Min(0.22*w, 0.35*h)

	el := func(id string, typ ElementType, x, y, gw, gh float64) Element {
		return Element{
			ID:       id,
			Type:     typ,
			Visible:  true,
			Opacity:  1,
			Geometry: Geometry{X: round(x), Y: round(y), Width: round(gw), Height: round(gh)},
		}
	}

	background := el(BackgroundID, ElementImage, 0, 0, w, h)
	background.Src = b.BackgroundSrc
	background.Locked = true

	logo := el(LogoID, ElementImage, 0.05*w, 0.05*h, 0.2*w, 0.15*h)
	logo.Src = b.LogoSrc

	headline := el(HeadlineID, ElementText, 0.05*w, 0.25*h, 0.6*w, 0.1*h)
	headline.Text = b.Headline

	message := el(MessageID, ElementText, 0.05*w, 0.38*h, 0.55*w, 0.3*h)
	message.Text = b.Message

	qrCode := el(QRCodeID, ElementImage, w-qr-0.05*w, h-qr-0.08*h, qr, qr)
	qrCode.Src = b.QRCodeSrc

	name := el(CustomerNameID, ElementText, 0.62*w, 0.12*h, 0.33*w, 0.06*h)
	name.Text = Placeholder(CustomerNameID)

	address := el(CustomerAddressID, ElementText, 0.62*w, 0.2*h, 0.33*w, 0.12*h)
	address.Text = Placeholder(CustomerAddressID)

	phone := el(PhoneNumberID, ElementText, 0.05*w, 0.85*h, 0.4*w, 0.06*h)
	phone.Text = b.Phone
	if phone.Text == "" {
		phone.Text = Placeholder(PhoneNumberID)
	}

	for _, text := range []*Element{&headline, &message, &name, &address, &phone} {
		text.Color = "#1a1a1a"
	}
	return []Element{background, logo, headline, message, qrCode, name, address, phone}
}

// round keeps geometry at two decimals so snapshots stay stable
func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func decorativeID(n int) string {
	return fmt.Sprintf("%s%d", decorativePrefix, n)
}
