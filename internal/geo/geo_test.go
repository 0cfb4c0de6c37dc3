package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	type args struct {
		a Coordinate
		b Coordinate
	}
	tests := []struct {
		name string
		args args
		want float64
		tol  float64
	}{
		{
			name: "same point",
			args: args{Coordinate{-12.046374, -77.042793}, Coordinate{-12.046374, -77.042793}},
			want: 0,
			tol:  1e-9,
		},
		{
			name: "one degree of latitude",
			args: args{Coordinate{0, 0}, Coordinate{1, 0}},
			want: 111.195,
			tol:  0.001,
		},
		{
			name: "lima downtown hop",
			args: args{Coordinate{-12.046374, -77.042793}, Coordinate{-12.056374, -77.052793}},
			want: 1.5553,
			tol:  0.001,
		},
		{
			name: "antipodal",
			args: args{Coordinate{0, 0}, Coordinate{0, 180}},
			want: math.Pi * EarthRadiusKm,
			tol:  1e-6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.args.a, tt.args.b), tt.tol)
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := Coordinate{-12.0464, -77.0428}
	b := Coordinate{-18.067, -70.232}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestPathDistance(t *testing.T) {
	pts := []Coordinate{{0, 0}, {0, 1}, {0, 2}}
	assert.InDelta(t, 2*Distance(pts[0], pts[1]), PathDistance(pts), 1e-9)
	assert.Zero(t, PathDistance(pts[:1]))
	assert.Zero(t, PathDistance(nil))
}

func TestInterpolate(t *testing.T) {
	a := Coordinate{0, 0}
	b := Coordinate{10, -20}

	pts := Interpolate(a, b, 20)
	require.Len(t, pts, 20)
	assert.Equal(t, a, pts[0])
	assert.InDelta(t, 0.5, pts[1].Lat, 1e-12)
	assert.InDelta(t, -1.0, pts[1].Lng, 1e-12)
	assert.InDelta(t, 9.5, pts[19].Lat, 1e-12)

	assert.Len(t, Interpolate(a, b, 0), 1)
}

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Coordinate
		wantErr bool
	}{
		{"origin", Coordinate{0, 0}, false},
		{"corners", Coordinate{-90, 180}, false},
		{"lat too big", Coordinate{90.0001, 0}, true},
		{"lng too small", Coordinate{0, -180.5}, true},
		{"nan", Coordinate{math.NaN(), 0}, true},
		{"inf", Coordinate{0, math.Inf(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.6, Round(1.5526, 1))
	assert.Equal(t, 2.0, Round(1.96, 1))
	assert.Equal(t, -12.04637, Round(-12.046374, 5))
}
