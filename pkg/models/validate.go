package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"label-catalog-api/pkg/apperr"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks an entity at the write boundary.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", apperr.ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s accepts at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return field + " must be a URL"
	case "email":
		return field + " must be an email address"
	case "datetime":
		return field + " must be a date (YYYY-MM-DD)"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// Patch is a merge-semantics update: fields to set and fields to unset.
type Patch struct {
	Set   bson.M
	Unset []string
}

func (p Patch) Empty() bool {
	return len(p.Set) == 0 && len(p.Unset) == 0
}

var readOnly = map[string]bool{
	"_id": true, "id": true, "createdAt": true, "updatedAt": true,
	"artistName": true, "tracks": true,
}

// MergePatch applies a JSON patch body onto dst, validates the merged entity,
// and returns only the fields the body named. Unknown and read-only keys are ignored.
func MergePatch(dst interface{}, body []byte) (Patch, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return Patch{}, apperr.Wrap(apperr.ErrInvalid, err)
	}
	for key := range keys {
		if readOnly[key] {
			delete(keys, key)
		}
	}
	body, err := json.Marshal(keys)
	if err != nil {
		return Patch{}, err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return Patch{}, apperr.Wrap(apperr.ErrInvalid, err)
	}
	if err := Validate(dst); err != nil {
		return Patch{}, err
	}

	raw, err := bson.Marshal(dst)
	if err != nil {
		return Patch{}, err
	}
	var merged bson.M
	if err := bson.Unmarshal(raw, &merged); err != nil {
		return Patch{}, err
	}

	known := fieldNames(dst)
	patch := Patch{Set: bson.M{}}
	for key := range keys {
		if !known[key] {
			continue
		}
		if v, ok := merged[key]; ok {
			patch.Set[key] = v
		} else {
			patch.Unset = append(patch.Unset, key)
		}
	}
	return patch, nil
}

func fieldNames(v interface{}) map[string]bool {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	names := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("bson"), ",", 2)[0]
		if name != "" && name != "-" {
			names[name] = true
		}
	}
	return names
}
