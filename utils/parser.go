package utils

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vitwit/pipay/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Decimals are validated through their float value so that numeric tags
	// like gt=0 apply. A zero amount reads as missing for required.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
}

// ValidatePaymentIntent checks that all mandatory intent fields are present.
func ValidatePaymentIntent(intent *types.PaymentIntent) error {
	if intent == nil {
		return types.NewError(types.CodeInvalidPaymentData, nil, "payment intent is nil")
	}

	if err := validate.Struct(intent); err != nil {
		return types.NewError(types.CodeInvalidPaymentData, err, "validation failed")
	}

	return nil
}

// ParsePaymentIntent parses and validates a PaymentIntent from JSON
func ParsePaymentIntent(data []byte) (*types.PaymentIntent, error) {
	var intent types.PaymentIntent

	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, types.NewError(types.CodeInvalidPaymentData, err, "failed to parse payment intent")
	}

	if err := ValidatePaymentIntent(&intent); err != nil {
		return nil, err
	}

	return &intent, nil
}

// ParseConfig parses Config from JSON
func ParseConfig(data []byte) (*types.Config, error) {
	var config types.Config

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &types.PaymentError{
			Code:    types.CodeConfig,
			Message: fmt.Sprintf("failed to parse config: %v", err),
		}
	}

	if err := validate.Struct(&config); err != nil {
		return nil, &types.PaymentError{
			Code:    types.CodeConfig,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return &config, nil
}

// NormalizeJSON formats JSON with consistent indentation
func NormalizeJSON(data interface{}) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}
