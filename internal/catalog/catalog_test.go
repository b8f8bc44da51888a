package catalog

import (
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/mkch/paybot/pkg/errors"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	item, ok := c.Get(PasscodeID)
	if !ok {
		t.Fatalf("expected %s in default catalog", PasscodeID)
	}
	if !item.Variable {
		t.Fatalf("default item should be variable-price")
	}
	if c.Has("UNKNOWN") {
		t.Fatalf("unexpected unknown item")
	}
}

func TestNewRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
	}{
		{name: "empty", items: nil},
		{name: "duplicate ids", items: []Item{
			{ID: "A", Name: "a", Description: "d", Secret: "s", Price: 1},
			{ID: "A", Name: "b", Description: "d", Secret: "s", Price: 2},
		}},
		{name: "two variable items", items: []Item{
			{ID: "A", Name: "a", Description: "d", Secret: "s", Variable: true},
			{ID: "B", Name: "b", Description: "d", Secret: "s", Variable: true},
		}},
		{name: "fixed without price", items: []Item{
			{ID: "A", Name: "a", Description: "d", Secret: "s"},
		}},
		{name: "missing secret", items: []Item{
			{ID: "A", Name: "a", Description: "d", Price: 5},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.items)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `items:
  - id: PASSCODE
    name: Passcode
    description: Disables captcha
    secret: PASSCODE
    variable: true
  - id: STICKERS
    name: Sticker pack
    description: A fixed-price pack
    secret: STICKER-SECRET
    price: 25
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	items := c.Items()
	if len(items) != 2 || items[0].ID != "PASSCODE" || items[1].ID != "STICKERS" {
		t.Fatalf("unexpected items order %+v", items)
	}
	if items[1].Price != 25 || items[1].Variable {
		t.Fatalf("unexpected fixed item %+v", items[1])
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Has(PasscodeID) {
		t.Fatalf("expected default catalog")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("items: [::"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
