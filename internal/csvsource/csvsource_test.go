package csvsource

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellar/internal/store"
)

func drain(t *testing.T, r *Reader) [][]string {
	t.Helper()
	var rows [][]string
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestReader_Positional(t *testing.T) {
	in := "Wine A,Merlot,France,Bordeaux,W,Red,2010,nice,90,13.5,20\n" +
		"Wine B,Shiraz,Australia,Barossa,X,Red,,,,,\n"

	rows := drain(t, NewReader(strings.NewReader(in)))
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Wine A", "Merlot", "France", "Bordeaux", "W", "Red", "2010", "nice", "90", "13.5", "20"}, rows[0])
	assert.Equal(t, "Wine B", rows[1][0])
}

func TestReader_HeaderReordersColumns(t *testing.T) {
	in := "price,Title,country,vintage,points\n" +
		"12.5,Cuvee,Chile,2018,\n" +
		"8,\"Comma, Inc 2003\",Spain,,80\n"

	rows := drain(t, NewReader(strings.NewReader(in)))
	require.Len(t, rows, 2)

	//                      title    variety country  region winery color vintage desc score abv price
	assert.Equal(t, []string{"Cuvee", "", "Chile", "", "", "", "2018", "", "", "", "12.5"}, rows[0])
	assert.Equal(t, "Comma, Inc 2003", rows[1][0])
	assert.Equal(t, "8", rows[1][10])
}

func TestReader_HeaderScoreAlias(t *testing.T) {
	in := "title,score\nA,95\n"

	rows := drain(t, NewReader(strings.NewReader(in)))
	require.Len(t, rows, 1)
	assert.Equal(t, "95", rows[0][8])
}

func TestReader_HeaderOnly(t *testing.T) {
	assert.Empty(t, drain(t, NewReader(strings.NewReader("title,country\n"))))
}

func TestReader_Empty(t *testing.T) {
	assert.Empty(t, drain(t, NewReader(strings.NewReader(""))))
}

func TestReader_MalformedQuote(t *testing.T) {
	r := NewReader(strings.NewReader("title\n\"unterminated\n"))
	_, err := r.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestReadGeolocations(t *testing.T) {
	in := "name,latitude,longitude\n" +
		"Marlborough,-41.5,173.9\n" +
		"Rioja, 42.3, -2.5\n"

	locs, err := ReadGeolocations(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []store.Geolocation{
		{Name: "Marlborough", Latitude: -41.5, Longitude: 173.9},
		{Name: "Rioja", Latitude: 42.3, Longitude: -2.5},
	}, locs)
}

func TestReadGeolocations_Errors(t *testing.T) {
	tests := map[string]string{
		"bad latitude":  "A,1,2\nB,north,2\n",
		"bad longitude": "A,1,east\n",
		"empty name":    " ,1,2\n",
		"wrong arity":   "A,1\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadGeolocations(strings.NewReader(in))
			require.Error(t, err)
		})
	}
}
