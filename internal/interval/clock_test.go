package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:00", want: 540},
		{in: "17:45", want: 1065},
		{in: "9:05", want: 545},
		{in: "24:30", want: 1470},
		{in: "0900", wantErr: true},
		{in: "aa:00", wantErr: true},
		{in: "10:75", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToMinutes(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "23:59", want: 1439},
		{in: "24:00", wantErr: true},
		{in: "24:30", wantErr: true},
		{in: "99:00", wantErr: true},
		{in: "10:75", wantErr: true},
		{in: "-1:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddMinutes(t *testing.T) {
	got, err := AddMinutes("09:00", 90)
	require.NoError(t, err)
	assert.Equal(t, "10:30", got)

	got, err = AddMinutes("17:45", 30)
	require.NoError(t, err)
	assert.Equal(t, "18:15", got)

	// Past midnight the hour keeps counting.
	got, err = AddMinutes("23:30", 60)
	require.NoError(t, err)
	assert.Equal(t, "24:30", got)

	_, err = AddMinutes("bad", 10)
	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 int
		want           bool
	}{
		{"disjoint before", 540, 600, 600, 660, false},
		{"disjoint after", 700, 760, 600, 660, false},
		{"back to back", 600, 630, 630, 660, false},
		{"partial", 600, 630, 615, 645, true},
		{"contained", 600, 720, 630, 660, true},
		{"identical", 600, 630, 600, 630, true},
		{"empty first interval", 600, 600, 540, 660, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.s1, tt.e1, tt.s2, tt.e2))
			assert.Equal(t, tt.want, Overlaps(tt.s2, tt.e2, tt.s1, tt.e1), "overlap must be symmetric")
		})
	}
}

func TestOverlaps_SymmetricGrid(t *testing.T) {
	points := []int{0, 30, 60, 90, 120}
	for _, s1 := range points {
		for _, e1 := range points {
			for _, s2 := range points {
				for _, e2 := range points {
					got := Overlaps(s1, e1, s2, e2)
					assert.Equal(t, got, Overlaps(s2, e2, s1, e1))
					if e1 <= s2 || e2 <= s1 {
						assert.False(t, got, "[%d,%d) vs [%d,%d)", s1, e1, s2, e2)
					}
				}
			}
		}
	}
}

func TestCeilToStep(t *testing.T) {
	assert.Equal(t, 630, CeilToStep(605, 540, 30))
	assert.Equal(t, 600, CeilToStep(600, 540, 30))
	assert.Equal(t, 540, CeilToStep(500, 540, 30))
	assert.Equal(t, 555, CeilToStep(541, 540, 15))
	assert.Equal(t, 601, CeilToStep(601, 540, 0))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "00:00", FormatMinutes(0))
	assert.Equal(t, "09:05", FormatMinutes(545))
	assert.Equal(t, "25:00", FormatMinutes(1500))
}
