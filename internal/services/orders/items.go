package orders

import (
	"strconv"
	"strings"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/pkg/errors"
)

// ParseItems parses the "Pizza:1, Coke:2" form used by the order placement page.
// A missing quantity means 1.
func ParseItems(text string) ([]models.Item, error) {
	var out []models.Item
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, qtyRaw, hasQty := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(strings.TrimSpace(qtyRaw))
			if err != nil {
				return nil, errors.Wrapf(models.ErrValidation, "item %q: quantity %q is not a number", name, qtyRaw)
			}
			qty = n
		}
		out = append(out, models.Item{Name: name, Qty: qty})
	}
	return out, nil
}

func validateItems(items []models.Item) error {
	if len(items) == 0 {
		return errors.Wrap(models.ErrValidation, "items is empty")
	}
	if len(items) > 200 {
		return errors.Wrap(models.ErrValidation, "too many items (max 200)")
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return errors.Wrapf(models.ErrValidation, "items[%d].name is required", i)
		}
		if it.Qty <= 0 {
			return errors.Wrapf(models.ErrValidation, "items[%d].qty must be positive", i)
		}
	}
	return nil
}
