package freight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mall/internal/service/order/domain/port"
)

const defaultRule = `subtotal >= 9900 ? 0 : (weight > 10.0 ? 1500 : 1000)`

func TestCalculateDefaultRule(t *testing.T) {
	calc, err := NewCELCalculator(defaultRule)
	require.NoError(t, err)

	cases := []struct {
		name  string
		input port.FreightInput
		want  int64
	}{
		{"满99包邮", port.FreightInput{Subtotal: 9900, Weight: 2.0}, 0},
		{"普通件", port.FreightInput{Subtotal: 5000, Weight: 2.0}, 1000},
		{"重货加价", port.FreightInput{Subtotal: 5000, Weight: 12.5}, 1500},
		{"临界重量不加价", port.FreightInput{Subtotal: 5000, Weight: 10.0}, 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, err := calc.Calculate(context.Background(), tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, fee)
		})
	}
}

func TestCalculateUsesProvince(t *testing.T) {
	calc, err := NewCELCalculator(`province == "海南省" ? 2000 : 1000`)
	require.NoError(t, err)

	fee, err := calc.Calculate(context.Background(), port.FreightInput{Province: "海南省"})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), fee)

	fee, err = calc.Calculate(context.Background(), port.FreightInput{Province: "广东省"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), fee)
}

func TestNewCELCalculatorRejectsBadRule(t *testing.T) {
	_, err := NewCELCalculator(`subtotal >= `)
	assert.Error(t, err)
}

func TestNewCELCalculatorRejectsWrongOutputType(t *testing.T) {
	// 规则必须返回金额（int），字符串结果在编译期拒绝
	_, err := NewCELCalculator(`province`)
	assert.Error(t, err)
}

func TestCalculateRejectsNegativeFee(t *testing.T) {
	calc, err := NewCELCalculator(`subtotal - 10000`)
	require.NoError(t, err)

	_, err = calc.Calculate(context.Background(), port.FreightInput{Subtotal: 5000})
	assert.Error(t, err)
}
