package filter

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Value implements driver.Valuer so StoredFilterConditions can live in a
// jsonb column without a wrapper type.
func (c StoredFilterConditions) Value() (driver.Value, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal filter conditions: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner. A NULL column scans to default conditions.
func (c *StoredFilterConditions) Scan(src any) error {
	if src == nil {
		*c = Default()
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("filter conditions: unsupported column type")
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("unmarshal filter conditions: %w", err)
	}
	return nil
}
