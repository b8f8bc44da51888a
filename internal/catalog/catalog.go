package catalog

import (
	"fmt"
	"os"

	pkgerrors "github.com/mkch/paybot/pkg/errors"
	"github.com/mkch/paybot/pkg/validate"
	"gopkg.in/yaml.v3"
)

// PasscodeID is the id of the built-in variable-price item.
const PasscodeID = "PASSCODE"

// Item is a purchasable catalog entry. Variable items take their minimum
// price from the live settings and are fulfilled from the code pool when
// auto-delivery is on.
type Item struct {
	ID          string `yaml:"id" validate:"required,max=64"`
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description" validate:"required"`
	Secret      string `yaml:"secret" validate:"required"`
	Price       int    `yaml:"price" validate:"gte=0"`
	Variable    bool   `yaml:"variable"`
}

type file struct {
	Items []Item `yaml:"items" validate:"required,min=1"`
}

// Catalog is the immutable-per-run list of items, kept in display order.
type Catalog struct {
	items []Item
	byID  map[string]Item
}

// New builds a catalog, rejecting duplicate ids and more than one variable item.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Item, len(items))}
	variable := 0
	for _, item := range items {
		if err := validate.Struct(item); err != nil {
			return nil, fmt.Errorf("item %q: %w", item.ID, err)
		}
		if !item.Variable && item.Price < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %q: fixed-price items need a price of at least 1", item.ID))
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate item id %q", item.ID))
		}
		if item.Variable {
			variable++
		}
		c.byID[item.ID] = item
		c.items = append(c.items, item)
	}
	if len(c.items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog has no items")
	}
	if variable > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at most one variable-price item is supported")
	}
	return c, nil
}

// Default returns the built-in single-item catalog.
func Default() *Catalog {
	c, err := New([]Item{{
		ID:          PasscodeID,
		Name:        "ПАССКОД 🔑",
		Description: "Необязательная услуга на MKch, для отключения Капчи (CAPTCHA) при написании треда/комментария. 50 ⭐ стоит + можете добавить свое кол-во звезд для поддержки.",
		Secret:      "PASSCODE",
		Variable:    true,
	}})
	if err != nil {
		panic(fmt.Sprintf("default catalog invalid: %v", err))
	}
	return c
}

// Load reads a YAML catalog from path. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return New(f.Items)
}

// Get returns the item with id.
func (c *Catalog) Get(id string) (Item, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Has reports whether id is a known item.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Items returns the items in display order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}
