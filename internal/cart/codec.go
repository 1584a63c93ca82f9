package cart

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Encode serializes items as the JSON array stored under the cart entry.
func Encode(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

// Decode reads a stored cart payload. Unreadable payloads yield an empty cart.
func Decode(data []byte) []LineItem {
	items, err := decode(data)
	if err != nil {
		return []LineItem{}
	}
	return items
}

func decode(data []byte) ([]LineItem, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []LineItem{}, fmt.Errorf("empty cart payload")
	}
	var raw []LineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return []LineItem{}, fmt.Errorf("decoding cart payload: %w", err)
	}
	return normalize(raw), nil
}

// normalize drops entries the cart could never hold and folds duplicate ids into the first one.
func normalize(raw []LineItem) []LineItem {
	items := make([]LineItem, 0, len(raw))
	for _, item := range raw {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" || item.Quantity <= 0 || item.UnitPrice < 0 {
			continue
		}
		if idx := indexOf(items, item.ID); idx >= 0 {
			items[idx].Quantity += item.Quantity
			continue
		}
		items = append(items, item)
	}
	return items
}

// indexOf matches ids ignoring surrounding whitespace, the same way AddItem stores them.
func indexOf(items []LineItem, id string) int {
	id = strings.TrimSpace(id)
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
