package reporting

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gr-butler/estacion/config"
	"github.com/gr-butler/estacion/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() data.SampleSet {
	return data.SampleSet{
		Time:          time.Date(2024, 3, 1, 10, 32, 55, 0, time.UTC),
		Temperature:   data.Of(20),
		Humidity:      data.Of(65),
		Pressure:      data.Of(1010),
		WindSpeed:     data.Of(12),
		WindDirection: data.DirectionOf(8),
	}
}

func TestWOW_Report(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/automaticreading", r.URL.Path)
		query = r.URL.Query()
	}))
	defer srv.Close()

	wow := NewWOW(srv.URL+"/automaticreading", "site", "pin", "estacion-test")
	require.NoError(t, wow.Report(context.Background(), sample()))

	assert.Equal(t, []string{"site"}, query["siteid"])
	assert.Equal(t, []string{"pin"}, query["siteAuthenticationKey"])
	assert.Equal(t, []string{"2024-03-01 10:32:55"}, query["dateutc"])
	assert.Equal(t, []string{"68"}, query["tempf"])
	assert.Equal(t, []string{"180"}, query["winddir"])
	assert.NotContains(t, query, "dewptf")
}

func TestWOW_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	wow := NewWOW(srv.URL, "site", "pin", "x")
	assert.Error(t, wow.Report(context.Background(), sample()))
	assert.ErrorIs(t, wow.Report(context.Background(), data.SampleSet{}), errNoWeather)
}

func TestRecorder_Statements(t *testing.T) {
	r, err := NewRecorder("postgres://estacion@127.0.0.1:1/weather?sslmode=disable", `obs"ervaciones`)
	require.NoError(t, err)
	defer r.Close()

	assert.Contains(t, r.createStatement(), `CREATE TABLE IF NOT EXISTS "obs""ervaciones"`)
	assert.Contains(t, r.insertStatement(), `INSERT INTO "obs""ervaciones"`)
	assert.Contains(t, r.insertStatement(), "$10")
}

func TestRecordArgs(t *testing.T) {
	args := recordArgs(sample())
	require.Len(t, args, 10)
	assert.Equal(t, sample().Time, args[0])
	assert.Equal(t, sql.NullFloat64{}, args[1], "altitude missing")
	assert.Equal(t, sql.NullFloat64{Float64: 65, Valid: true}, args[3])
	assert.Equal(t, sql.NullFloat64{Float64: 20, Valid: true}, args[7])
	assert.Equal(t, sql.NullFloat64{Float64: 180, Valid: true}, args[9])

	args = recordArgs(data.SampleSet{})
	assert.Equal(t, sql.NullFloat64{}, args[9])
}

func TestSnapshotFields(t *testing.T) {
	fields := snapshotFields(sample())
	assert.Equal(t, "2024-03-01T10:32:55Z", fields["time"])
	assert.Equal(t, 20.0, fields["temperatura"])
	assert.Equal(t, 180.0, fields["direccion"])
	assert.NotContains(t, fields, "lluvia")
	assert.Len(t, fields, 6)
}

func TestSnapshot_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := NewSnapshot(addr, "estacion:ultima", time.Hour)
	defer s.Close()
	assert.Error(t, s.Report(context.Background(), sample()))
}

func TestOpen(t *testing.T) {
	cfg := config.Default().Reporting
	assert.Empty(t, Open(cfg, "x"))

	cfg.WOW.SiteID = "1"
	cfg.WOW.AuthKey = "2"
	cfg.Postgres.DSN = "postgres://u@127.0.0.1:1/db?sslmode=disable"
	cfg.Redis.Addr = "127.0.0.1:1"
	sinks := Open(cfg, "x")
	require.Len(t, sinks, 3)
	assert.Equal(t, "metoffice-wow", sinks[0].Name())
	assert.Equal(t, "postgres", sinks[1].Name())
	assert.Equal(t, "redis", sinks[2].Name())
	for _, s := range sinks {
		assert.NoError(t, s.Close())
	}
}
