// internal/money/money_test.go

package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
	}{
		{"2500", 250000},
		{"12.5", 1250},
		{"0.01", 1},
		{"-50", -5000},
		{" 7 ", 700},
		{"1.20", 120},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "1.005", "NaN", "1e30", "Infinity"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}{Units(7500), 1250})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":7500,"b":12.5}`, string(b))

	var v struct {
		A *Amount `json:"a"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":2500}`), &v))
	require.NotNil(t, v.A)
	assert.Equal(t, Units(2500), *v.A)

	// 字串形式亦可
	require.NoError(t, json.Unmarshal([]byte(`{"a":"0.5"}`), &v))
	assert.Equal(t, Amount(50), *v.A)

	// null 保持 nil
	v.A = nil
	require.NoError(t, json.Unmarshal([]byte(`{"a":null}`), &v))
	assert.Nil(t, v.A)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"ten"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":0.001}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestYAML(t *testing.T) {
	var v struct {
		Balance Amount `yaml:"balance"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("balance: 10000\n"), &v))
	assert.Equal(t, Units(10000), v.Balance)

	require.NoError(t, yaml.Unmarshal([]byte("balance: \"12.50\"\n"), &v))
	assert.Equal(t, Amount(1250), v.Balance)

	assert.Error(t, yaml.Unmarshal([]byte("balance: [1]\n"), &v))
}

func TestString(t *testing.T) {
	assert.Equal(t, "10000", Units(10000).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "-1.5", Amount(-150).String())
}
