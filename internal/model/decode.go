package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/budgie-app/budgie/internal/period"
)

// DecodeError names the payload field that did not match the expected shape.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// maxSafeInteger is the largest integer a JSON number can carry without loss.
const maxSafeInteger = 1<<53 - 1

type object map[string]json.RawMessage

func parseObject(raw json.RawMessage) (object, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil || o == nil {
		return nil, &DecodeError{Field: "$", Reason: "expected an object"}
	}
	return o, nil
}

func (o object) present(field string) (json.RawMessage, bool) {
	v, ok := o[field]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func (o object) str(field string) (string, error) {
	v, ok := o.present(field)
	if !ok {
		return "", &DecodeError{Field: field, Reason: "required"}
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", &DecodeError{Field: field, Reason: "expected a string"}
	}
	return s, nil
}

func (o object) optStr(field string) (string, error) {
	if _, ok := o.present(field); !ok {
		return "", nil
	}
	return o.str(field)
}

func (o object) cents(field string) (int64, error) {
	v, ok := o.present(field)
	if !ok {
		return 0, &DecodeError{Field: field, Reason: "required"}
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, &DecodeError{Field: field, Reason: "expected a number"}
	}
	if math.Trunc(f) != f || f > maxSafeInteger {
		return 0, &DecodeError{Field: field, Reason: fmt.Sprintf("%v is not an integer amount", f)}
	}
	if f < 0 {
		return 0, &DecodeError{Field: field, Reason: fmt.Sprintf("%v is negative", f)}
	}
	return int64(f), nil
}

func (o object) timestamp(field string) (time.Time, error) {
	s, err := o.str(field)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, &DecodeError{Field: field, Reason: fmt.Sprintf("invalid timestamp %q", s)}
	}
	return t, nil
}

func (o object) optTimestamp(field string) (*time.Time, error) {
	s, err := o.optStr(field)
	if err != nil || s == "" {
		return nil, err
	}
	t, err := o.timestamp(field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// decoder collects the first field error so decode functions read top to bottom.
type decoder struct {
	o   object
	err error
}

func (d *decoder) str(field string) string {
	if d.err != nil {
		return ""
	}
	s, err := d.o.str(field)
	d.err = err
	return s
}

func (d *decoder) optStr(field string) string {
	if d.err != nil {
		return ""
	}
	s, err := d.o.optStr(field)
	d.err = err
	return s
}

func (d *decoder) cents(field string) int64 {
	if d.err != nil {
		return 0
	}
	c, err := d.o.cents(field)
	d.err = err
	return c
}

func (d *decoder) timestamp(field string) time.Time {
	if d.err != nil {
		return time.Time{}
	}
	t, err := d.o.timestamp(field)
	d.err = err
	return t
}

func (d *decoder) optTimestamp(field string) time.Time {
	if d.err != nil {
		return time.Time{}
	}
	t, err := d.o.optTimestamp(field)
	d.err = err
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (d *decoder) deletedAt(field string) *time.Time {
	if d.err != nil {
		return nil
	}
	t, err := d.o.optTimestamp(field)
	d.err = err
	return t
}

// DecodeUser decodes a session payload {userId, username}.
func DecodeUser(raw json.RawMessage) (User, error) {
	o, err := parseObject(raw)
	if err != nil {
		return User{}, err
	}
	d := &decoder{o: o}
	u := User{
		ID:       d.str("userId"),
		Username: d.str("username"),
	}
	return u, d.err
}

// DecodeCategory decodes {id, user, name}.
func DecodeCategory(raw json.RawMessage) (Category, error) {
	o, err := parseObject(raw)
	if err != nil {
		return Category{}, err
	}
	d := &decoder{o: o}
	c := Category{
		ID:     d.str("id"),
		UserID: d.optStr("user"),
		Name:   d.str("name"),
	}
	return c, d.err
}

// DecodeTransaction decodes a transaction record. The type must be exactly
// "income" or "expense" and the amount a non-negative integer.
func DecodeTransaction(raw json.RawMessage) (Transaction, error) {
	o, err := parseObject(raw)
	if err != nil {
		return Transaction{}, err
	}
	d := &decoder{o: o}
	t := Transaction{
		ID:           d.str("id"),
		UserID:       d.optStr("userid"),
		Vendor:       d.str("vendor"),
		Description:  d.str("description"),
		CategoryID:   d.str("category_id"),
		CategoryName: d.optStr("category_name"),
		AmountCents:  d.cents("amount"),
		Type:         TransactionType(d.str("type")),
		Date:         d.timestamp("date"),
		CreatedAt:    d.optTimestamp("created_at"),
		UpdatedAt:    d.optTimestamp("updated_at"),
		DeletedAt:    d.deletedAt("deleted_at"),
	}
	if d.err != nil {
		return Transaction{}, d.err
	}
	if !t.Type.Valid() {
		return Transaction{}, &DecodeError{Field: "type", Reason: `must be "income" or "expense"`}
	}
	return t, nil
}

// DecodeBudget decodes {id, user, category, amount, period, ...}.
func DecodeBudget(raw json.RawMessage) (Budget, error) {
	o, err := parseObject(raw)
	if err != nil {
		return Budget{}, err
	}
	return decodeBudget(&decoder{o: o})
}

func decodeBudget(d *decoder) (Budget, error) {
	b := Budget{
		ID:          d.str("id"),
		UserID:      d.optStr("user"),
		CategoryID:  d.str("category"),
		AmountCents: d.cents("amount"),
		CreatedAt:   d.optTimestamp("created_at"),
		UpdatedAt:   d.optTimestamp("updated_at"),
		DeletedAt:   d.deletedAt("deleted_at"),
	}
	raw := d.str("period")
	if d.err != nil {
		return Budget{}, d.err
	}
	p, err := period.Parse(raw)
	if err != nil {
		return Budget{}, &DecodeError{Field: "period", Reason: err.Error()}
	}
	b.Period = p
	return b, nil
}

// DecodeBudgetUtilization decodes a budget carrying a "utilization" amount.
func DecodeBudgetUtilization(raw json.RawMessage) (BudgetUtilization, error) {
	o, err := parseObject(raw)
	if err != nil {
		return BudgetUtilization{}, err
	}
	d := &decoder{o: o}
	b, err := decodeBudget(d)
	if err != nil {
		return BudgetUtilization{}, err
	}
	used := d.cents("utilization")
	if d.err != nil {
		return BudgetUtilization{}, d.err
	}
	return BudgetUtilization{Budget: b, UtilizationCents: used}, nil
}

// DecodeData returns the "data" member of a response envelope.
func DecodeData(body []byte) (json.RawMessage, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil || env == nil {
		return nil, &DecodeError{Field: "$", Reason: "expected an object"}
	}
	data, ok := env["data"]
	if !ok {
		return nil, &DecodeError{Field: "data", Reason: "required"}
	}
	return data, nil
}

// DecodeList decodes an envelope {data: [...]} element by element.
func DecodeList[T any](body []byte, decode func(json.RawMessage) (T, error)) ([]T, error) {
	data, err := DecodeData(body)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return nil, &DecodeError{Field: "data", Reason: "expected an array"}
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		v, err := decode(item)
		if err != nil {
			return nil, prefix(err, fmt.Sprintf("data[%d]", i))
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeOne decodes an envelope {data: {...}}.
func DecodeOne[T any](body []byte, decode func(json.RawMessage) (T, error)) (T, error) {
	data, err := DecodeData(body)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := decode(data)
	if err != nil {
		var zero T
		return zero, prefix(err, "data")
	}
	return v, nil
}

func prefix(err error, path string) error {
	var de *DecodeError
	if !errors.As(err, &de) {
		return err
	}
	field := path
	if de.Field != "$" {
		field = path + "." + de.Field
	}
	return &DecodeError{Field: field, Reason: de.Reason}
}
