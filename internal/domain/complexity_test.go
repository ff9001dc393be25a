package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Level
		wantErr bool
	}{
		{name: "lowest", input: "1", want: LevelFoundation},
		{name: "highest", input: "5", want: LevelExpert},
		{name: "surrounding whitespace", input: " 3\n", want: LevelStandard},
		{name: "zero", input: "0", wantErr: true},
		{name: "six", input: "6", wantErr: true},
		{name: "garbage", input: "expert", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_EncodeRoundTrip(t *testing.T) {
	for l := MinLevel; l <= MaxLevel; l++ {
		got, err := ParseLevel(l.Encode())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
}

func TestLevel_OrDefault(t *testing.T) {
	assert.Equal(t, LevelAdvanced, LevelAdvanced.OrDefault())
	assert.Equal(t, DefaultLevel, Level(0).OrDefault())
	assert.Equal(t, DefaultLevel, Level(9).OrDefault())
}

func TestScaleMapping(t *testing.T) {
	expected := map[Level]ModuleLevel{
		LevelFoundation: ModuleFoundation,
		LevelDeveloping: ModuleHighSchool,
		LevelStandard:   ModuleCollege,
		LevelAdvanced:   ModuleGraduate,
		LevelExpert:     ModuleClinical,
	}
	for l, m := range expected {
		assert.Equal(t, m, l.ToModuleLevel(), "level %d", l)
		assert.Equal(t, l, m.ToLevel(), "module level %d", m)
	}

	assert.Equal(t, LevelAdvanced, ModuleProfessional.ToLevel())
	assert.Equal(t, DefaultLevel, ModuleLevel(0).ToLevel())
	assert.Equal(t, ModuleCollege, Level(42).ToModuleLevel())
}

func TestScaleMapping_Monotonic(t *testing.T) {
	prev := ModuleLevel(0)
	for l := MinLevel; l <= MaxLevel; l++ {
		m := l.ToModuleLevel()
		assert.Greater(t, int(m), int(prev))
		prev = m
	}
}

func TestStripAnatomyNamespace(t *testing.T) {
	assert.Equal(t, "heart", StripAnatomyNamespace("anatomy:heart"))
	assert.Equal(t, "Aorta", StripAnatomyNamespace("ANATOMY:Aorta"))
	assert.Equal(t, "condition:mi", StripAnatomyNamespace("condition:mi"))
	assert.Equal(t, "anat", StripAnatomyNamespace("anat"))
}
