// Package catalog holds the product catalog used by the inventory and
// transaction handlers.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	// ErrItemNotFound is returned for an unknown SKU.
	ErrItemNotFound = errors.New("catalog item not found")
	// ErrInsufficientStock is returned when a reservation exceeds stock.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Item is one product the service can quote.
type Item struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Aliases  []string        `json:"aliases,omitempty"`
}

// Match is an item mentioned in a message with the requested quantity.
type Match struct {
	Item     Item
	Quantity int
}

// Catalog is a concurrency-safe product list with stock counts.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]*Item
	order []string
}

type fileItem struct {
	SKU      string   `yaml:"sku"`
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Price    string   `yaml:"price"`
	Stock    int      `yaml:"stock"`
	Aliases  []string `yaml:"aliases"`
}

type fileCatalog struct {
	Items []fileItem `yaml:"items"`
}

// DefaultItems is the built-in catalog of supplements and equipment.
func DefaultItems() []Item {
	return []Item{
		{SKU: "SUP-WHEY", Name: "Whey Protein Powder", Category: "supplements", Price: decimal.RequireFromString("39.99"), Stock: 40, Aliases: []string{"protein powder", "whey"}},
		{SKU: "SUP-CREA", Name: "Creatine Monohydrate", Category: "supplements", Price: decimal.RequireFromString("24.50"), Stock: 60, Aliases: []string{"creatine"}},
		{SKU: "SUP-MULTI", Name: "Men's Multivitamin", Category: "supplements", Price: decimal.RequireFromString("18.00"), Stock: 75, Aliases: []string{"multivitamin", "vitamins"}},
		{SKU: "SUP-OMEGA", Name: "Omega-3 Fish Oil", Category: "supplements", Price: decimal.RequireFromString("21.25"), Stock: 50, Aliases: []string{"omega-3", "fish oil"}},
		{SKU: "EQ-BANDS", Name: "Resistance Band Set", Category: "equipment", Price: decimal.RequireFromString("29.99"), Stock: 25, Aliases: []string{"resistance bands", "bands"}},
		{SKU: "EQ-DUMB", Name: "Adjustable Dumbbells", Category: "equipment", Price: decimal.RequireFromString("199.00"), Stock: 8, Aliases: []string{"dumbbells", "dumbbell"}},
		{SKU: "EQ-MAT", Name: "Yoga Mat", Category: "equipment", Price: decimal.RequireFromString("34.00"), Stock: 30, Aliases: []string{"yoga mat", "mat"}},
	}
}

// New builds a catalog from items. Later duplicates of a SKU replace earlier ones.
func New(items []Item) *Catalog {
	c := &Catalog{items: make(map[string]*Item, len(items))}
	for _, item := range items {
		item := item
		item.SKU = strings.ToUpper(strings.TrimSpace(item.SKU))
		if _, exists := c.items[item.SKU]; !exists {
			c.order = append(c.order, item.SKU)
		}
		c.items[item.SKU] = &item
	}
	return c
}

// Load reads a YAML catalog file. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return New(DefaultItems()), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file fileCatalog
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("catalog file %s has no items", path)
	}

	items := make([]Item, 0, len(file.Items))
	for _, fi := range file.Items {
		if strings.TrimSpace(fi.SKU) == "" || strings.TrimSpace(fi.Name) == "" {
			return nil, fmt.Errorf("catalog item requires sku and name")
		}
		price, err := decimal.NewFromString(fi.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog item %s: invalid price %q: %w", fi.SKU, fi.Price, err)
		}
		if price.IsNegative() || fi.Stock < 0 {
			return nil, fmt.Errorf("catalog item %s: price and stock must not be negative", fi.SKU)
		}
		items = append(items, Item{
			SKU:      fi.SKU,
			Name:     fi.Name,
			Category: fi.Category,
			Price:    price,
			Stock:    fi.Stock,
			Aliases:  fi.Aliases,
		})
	}
	return New(items), nil
}

// List returns a snapshot of all items in catalog order.
func (c *Catalog) List() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return lo.Map(c.order, func(sku string, _ int) Item {
		return cloneItem(c.items[sku])
	})
}

// Get returns a snapshot of one item.
func (c *Catalog) Get(sku string) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[strings.ToUpper(sku)]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return cloneItem(item), nil
}

// Categories returns the distinct categories in catalog order.
func (c *Catalog) Categories() []string {
	return lo.Uniq(lo.Map(c.List(), func(item Item, _ int) string {
		return item.Category
	}))
}

// Find returns the items mentioned in text with the quantity written in
// front of them ("buy 2 protein powder"), defaulting to 1.
func (c *Catalog) Find(text string) []Match {
	lower := strings.ToLower(text)

	var matches []Match
	for _, item := range c.List() {
		phrases := append([]string{item.Name}, item.Aliases...)
		// longest phrase first so "protein powder" wins over "protein"
		sort.SliceStable(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })

		phrase, found := lo.Find(phrases, func(p string) bool {
			return containsPhrase(lower, strings.ToLower(p))
		})
		if !found {
			continue
		}
		matches = append(matches, Match{Item: item, Quantity: quantityBefore(lower, strings.ToLower(phrase))})
	}
	return matches
}

// Reserve decrements stock for every match, or for none of them.
func (c *Catalog) Reserve(wanted map[string]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for sku, qty := range wanted {
		item, ok := c.items[sku]
		if !ok {
			return fmt.Errorf("%s: %w", sku, ErrItemNotFound)
		}
		if qty <= 0 || item.Stock < qty {
			return fmt.Errorf("%s: %w", item.Name, ErrInsufficientStock)
		}
	}
	for sku, qty := range wanted {
		c.items[sku].Stock -= qty
	}
	return nil
}

// Release returns stock taken by Reserve. Unknown SKUs are ignored.
func (c *Catalog) Release(wanted map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for sku, qty := range wanted {
		if item, ok := c.items[sku]; ok && qty > 0 {
			item.Stock += qty
		}
	}
}

func cloneItem(item *Item) Item {
	clone := *item
	clone.Aliases = append([]string(nil), item.Aliases...)
	return clone
}

func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	re := regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(phrase) + `($|[^a-z0-9])`)
	return re.MatchString(text)
}

func quantityBefore(text, phrase string) int {
	re := regexp.MustCompile(`(\d+)\s*(?:x\s+)?` + regexp.QuoteMeta(phrase))
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 1
	}
	qty, err := strconv.Atoi(m[1])
	if err != nil || qty <= 0 {
		return 1
	}
	return qty
}
