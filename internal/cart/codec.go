package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	pkgerrors "github.com/angelmondragon/gourmet-cart/pkg/errors"
	"github.com/angelmondragon/gourmet-cart/pkg/types"
	"go.uber.org/multierr"
)

// StateVersion is the layout version written by encodeState. Version 0 is the
// bare JSON array used before the envelope existed.
const StateVersion = 1

type stateEnvelope struct {
	Version int           `json:"version"`
	Items   []stateRecord `json:"items"`
}

type stateRecord struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	UnitPrice   types.Money `json:"unitPrice"`
	OriginLabel string      `json:"originLabel"`
	Quantity    int         `json:"quantity"`
}

// legacyRecord accepts version-0 entries, which may use numeric ids and the
// price/restaurant field names.
type legacyRecord struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	UnitPrice   *types.Money    `json:"unitPrice"`
	Price       *types.Money    `json:"price"`
	OriginLabel string          `json:"originLabel"`
	Restaurant  string          `json:"restaurant"`
	Quantity    int             `json:"quantity"`
}

func encodeState(items []LineItem) ([]byte, error) {
	env := stateEnvelope{Version: StateVersion, Items: make([]stateRecord, 0, len(items))}
	for _, item := range items {
		env.Items = append(env.Items, stateRecord{
			ID:          item.ID,
			Name:        item.Name,
			UnitPrice:   item.UnitPrice,
			OriginLabel: item.OriginLabel,
			Quantity:    item.Quantity,
		})
	}
	return json.Marshal(env)
}

// decodeState parses and validates a stored payload. Every failure is a
// CodeCorruptState error; callers fall back to an empty cart.
func decodeState(payload []byte) ([]LineItem, int, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeCorruptState, "empty payload")
	}

	var (
		items   []LineItem
		version int
		err     error
	)
	switch trimmed[0] {
	case '[':
		items, err = decodeLegacy(trimmed)
	case '{':
		items, version, err = decodeEnvelope(trimmed)
	default:
		err = pkgerrors.New(pkgerrors.CodeCorruptState, "payload is neither an array nor an object")
	}
	if err != nil {
		return nil, version, err
	}
	if err := validateItems(items); err != nil {
		return nil, version, pkgerrors.Wrap(pkgerrors.CodeCorruptState, err, "invalid cart records").
			WithDetails(map[string]any{"records": len(items), "problems": len(multierr.Errors(err))})
	}
	return items, version, nil
}

func decodeEnvelope(payload []byte) ([]LineItem, int, error) {
	var probe struct {
		Version *int            `json:"version"`
		Items   json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeCorruptState, err, "unparseable envelope")
	}
	if probe.Version == nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeCorruptState, "envelope without version")
	}
	version := *probe.Version
	if version != StateVersion {
		return nil, version, pkgerrors.New(pkgerrors.CodeCorruptState, fmt.Sprintf("unsupported state version %d", version))
	}

	var records []stateRecord
	if len(probe.Items) > 0 {
		if err := json.Unmarshal(probe.Items, &records); err != nil {
			return nil, version, pkgerrors.Wrap(pkgerrors.CodeCorruptState, err, "unparseable items")
		}
	}
	items := make([]LineItem, 0, len(records))
	for _, rec := range records {
		items = append(items, LineItem{
			ID:          rec.ID,
			Name:        rec.Name,
			UnitPrice:   rec.UnitPrice,
			OriginLabel: rec.OriginLabel,
			Quantity:    rec.Quantity,
		})
	}
	return items, version, nil
}

func decodeLegacy(payload []byte) ([]LineItem, error) {
	var records []legacyRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCorruptState, err, "unparseable legacy array")
	}
	items := make([]LineItem, 0, len(records))
	for i, rec := range records {
		id, err := legacyID(rec.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeCorruptState, err, fmt.Sprintf("record %d", i))
		}
		price := rec.UnitPrice
		if price == nil {
			price = rec.Price
		}
		if price == nil {
			return nil, pkgerrors.New(pkgerrors.CodeCorruptState, fmt.Sprintf("record %d has no price", i))
		}
		origin := rec.OriginLabel
		if origin == "" {
			origin = rec.Restaurant
		}
		items = append(items, LineItem{
			ID:          id,
			Name:        rec.Name,
			UnitPrice:   *price,
			OriginLabel: origin,
			Quantity:    rec.Quantity,
		})
	}
	return items, nil
}

func legacyID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("missing id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id is neither string nor number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("id %s is not an integer", n)
	}
	return n.String(), nil
}

func validateItems(items []LineItem) error {
	var (
		errs     error
		subtotal types.Money
		sumOK    = true
	)
	ids := make(map[string]struct{}, len(items))
	identities := make(map[identity]struct{}, len(items))
	for i, item := range items {
		if item.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("record %d: empty id", i))
		} else if _, dup := ids[item.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("record %d: duplicate id %q", i, item.ID))
		}
		ids[item.ID] = struct{}{}

		if item.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("record %d: empty name", i))
		}
		if item.OriginLabel == "" {
			errs = multierr.Append(errs, fmt.Errorf("record %d: empty origin label", i))
		}
		if item.UnitPrice.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("record %d: negative unit price", i))
		}
		if item.Quantity < 1 {
			errs = multierr.Append(errs, fmt.Errorf("record %d: quantity %d below 1", i, item.Quantity))
		}

		if line, ok := item.UnitPrice.MulQty(item.Quantity); !ok {
			errs = multierr.Append(errs, fmt.Errorf("record %d: line total of %d x %d overflows", i, item.UnitPrice, item.Quantity))
			sumOK = false
		} else if sumOK {
			if subtotal, ok = subtotal.Add(line); !ok {
				errs = multierr.Append(errs, fmt.Errorf("record %d: cart subtotal overflows", i))
				sumOK = false
			}
		}

		key := item.identity()
		if _, dup := identities[key]; dup {
			errs = multierr.Append(errs, fmt.Errorf("record %d: duplicate line item %q from %q", i, item.Name, item.OriginLabel))
		}
		identities[key] = struct{}{}
	}
	return errs
}
