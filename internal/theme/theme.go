package theme

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Name string

const (
	Light      Name = "light"
	Dark       Name = "dark"
	Redish     Name = "redish"
	Purplelish Name = "purplelish"
	Brownish   Name = "brownish"

	Default = Light

	// Attribute is set on the document root to the theme name
	Attribute = "data-theme"
	// ColorVariable carries the theme's primary color
	ColorVariable = "--primary-color"
)

var ErrUnknownTheme = errors.New("unknown theme")

var colors = map[Name]string{
	Light:      "#1976d2",
	Dark:       "#121212",
	Redish:     "#b71c1c",
	Purplelish: "#6a1b9a",
	Brownish:   "#5d4037",
}

func Parse(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := colors[n]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
	}
	return n, nil
}

// All lists the known themes, default first
func All() []Name {
	names := make([]Name, 0, len(colors))
	for n := range colors {
		if n != Default {
			names = append(names, n)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return append([]Name{Default}, names...)
}

func (n Name) Color() string {
	if c, ok := colors[n]; ok {
		return c
	}
	return colors[Default]
}

// Document is what a theme does to the rendered page: one attribute on the
// root element and one CSS variable
type Document struct {
	Attribute     string
	Value         string
	ColorVariable string
	Color         string
}

// Style renders the CSS variable as an inline style declaration
func (d Document) Style() string {
	return d.ColorVariable + ": " + d.Color + ";"
}

// Context holds one visitor's active theme. It has nothing to do with
// authentication: logging out leaves it as it was.
type Context struct {
	mu   sync.RWMutex
	name Name
}

func NewContext() *Context {
	return &Context{name: Default}
}

func (c *Context) Name() Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Context) SetThemeName(s string) error {
	n, err := Parse(s)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.name = n
	c.mu.Unlock()
	return nil
}

func (c *Context) Document() Document {
	n := c.Name()
	return Document{
		Attribute:     Attribute,
		Value:         string(n),
		ColorVariable: ColorVariable,
		Color:         n.Color(),
	}
}
