package config

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// decodeHook keeps viper's default string conversions and rejects numbers
// that do not fit the target integer type instead of truncating them.
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		checkIntegerRange,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

func checkIntegerRange(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() == reflect.Pointer {
		to = to.Elem()
	}
	v := reflect.ValueOf(data)

	switch to.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		limit := uint64(math.MaxUint64)
		if to.Bits() < 64 {
			limit = uint64(1)<<to.Bits() - 1
		}
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if n := v.Int(); n < 0 || uint64(n) > limit {
				return nil, outOfRange(data, to)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v.Uint() > limit {
				return nil, outOfRange(data, to)
			}
		case reflect.Float32, reflect.Float64:
			if f := v.Float(); f < 0 || f > float64(limit) || f != math.Trunc(f) {
				return nil, outOfRange(data, to)
			}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
		if to.Bits() < 64 {
			hi = int64(1)<<(to.Bits()-1) - 1
			lo = -hi - 1
		}
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if n := v.Int(); n < lo || n > hi {
				return nil, outOfRange(data, to)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v.Uint() > uint64(hi) {
				return nil, outOfRange(data, to)
			}
		case reflect.Float32, reflect.Float64:
			if f := v.Float(); f < float64(lo) || f > float64(hi) || f != math.Trunc(f) {
				return nil, outOfRange(data, to)
			}
		}
	}
	return data, nil
}

func outOfRange(data any, to reflect.Type) error {
	return fmt.Errorf("value %v does not fit %s", data, to)
}
