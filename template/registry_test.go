package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgonek/linkit/model"
)

func TestRegisterValidates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ElementInfo{Name: "ck-button", Type: TypeButton}))
	require.Error(t, r.Register(ElementInfo{Name: "ck-button", Type: TypeButton}))
	require.Error(t, r.Register(ElementInfo{Name: " ", Type: TypeButton}))
	require.Error(t, r.Register(ElementInfo{Name: "card"}))

	assert.Equal(t, []string{"ck-button"}, r.Names())

	var nilRegistry *Registry
	assert.Nil(t, nilRegistry.Names())
	_, ok := nilRegistry.Lookup("ck-button")
	assert.False(t, ok)
}

func TestPlainOption(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		want   bool
	}{
		{name: "unset", want: false},
		{name: "bool", config: map[string]any{"plain": true}, want: true},
		{name: "string", config: map[string]any{"plain": "TRUE"}, want: true},
		{name: "other", config: map[string]any{"plain": 1}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElementInfo{Name: "x", Type: "x", Config: tt.config}.Plain())
		})
	}
}

func TestNearestAndContainerOf(t *testing.T) {
	text := model.NewText("Buy")
	label := model.NewElement("label", nil, text)
	button := model.NewElement("ck-button", nil, label)
	card := model.NewElement("card", nil, button)

	r := NewRegistry()
	require.NoError(t, r.Register(ElementInfo{Name: "ck-button", Type: TypeButton}))
	require.NoError(t, r.Register(ElementInfo{Name: "card", Type: "card", Config: map[string]any{"plain": true}}))

	n, info, ok := r.ContainerOf(text, TypeButton)
	require.True(t, ok)
	assert.Same(t, button, n)
	assert.Equal(t, "ck-button", info.Name)

	n, _, ok = r.Nearest(text, ElementInfo.Plain)
	require.True(t, ok)
	assert.Same(t, card, n)

	_, _, ok = r.ContainerOf(card, TypeButton)
	assert.False(t, ok)

	_, ok = r.Info(text)
	assert.False(t, ok)
}
