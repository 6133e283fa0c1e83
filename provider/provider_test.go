package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/stretchr/testify/assert"
)

var (
	_ IdentityProvider = (*GovProvider)(nil)
	_ IdentityProvider = (*MockProvider)(nil)
)

const testRecordJSON = `{
	"status": 1,
	"data": {
		"ps_ser": "AA",
		"ps_num": "1234567",
		"pnfl": "12345678901234",
		"sname": "ABDULLAYEV",
		"fname": "ABDULLA",
		"mname": "ABDULLAYEVICH",
		"birth_date": "1990-01-01",
		"birth_place": "TOSHKENT SHAHAR",
		"nationality": "O'ZBEK",
		"sex": "1",
		"livestatus": "0",
		"doc_give_place": "YUNUSOBOD TUMANI IIB",
		"matches_date_begin_document": "2020-01-01",
		"matches_date_end_document": "2030-01-01",
		"photo": "dGVzdA=="
	}
}`

func genTestGovProvider(baseURL string) *GovProvider {
	return NewGovProvider(config.NewProviderParams(baseURL, 2*time.Second, time.Hour))
}

func TestGovProvider_Lookup(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/compress", r.URL.Path)
		assert.Equal(t, "12345678901234", r.URL.Query().Get("imie"))
		assert.Equal(t, "AA1234567", r.URL.Query().Get("ps"))
		fmt.Fprint(w, testRecordJSON)
	}))
	defer srv.Close()

	p := genTestGovProvider(srv.URL)
	record, err := p.Lookup(context.Background(), "12345678901234", "AA1234567")
	assert.NoError(t, err)
	assert.Equal(t, "ABDULLAYEV", record.Surname)
	assert.Equal(t, "12345678901234", record.PersonalNumber)
	assert.Equal(t, "data:image/jpeg;base64,dGVzdA==", record.PhotoBase64())

	// The second lookup is served from cache.
	record, err = p.Lookup(context.Background(), "12345678901234", "AA1234567")
	assert.NoError(t, err)
	assert.NotNil(t, record)
	assert.Equal(t, 1, hits)
}

func TestGovProvider_LookupDoubleEncoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoded, err := json.Marshal(testRecordJSON)
		assert.NoError(t, err)
		w.Write(encoded)
	}))
	defer srv.Close()

	p := genTestGovProvider(srv.URL)
	record, err := p.Lookup(context.Background(), "12345678901234", "AA1234567")
	assert.NoError(t, err)
	assert.Equal(t, "ABDULLA", record.FirstName)
}

func TestGovProvider_LookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": 0, "message": "no record"}`)
	}))
	defer srv.Close()

	p := genTestGovProvider(srv.URL)
	_, err := p.Lookup(context.Background(), "00000000000000", "AA0000000")
	assert.ErrorIs(t, err, config.ErrIdentityNotFound)
}

func TestGovProvider_LookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := genTestGovProvider(srv.URL)
	_, err := p.Lookup(context.Background(), "12345678901234", "AA1234567")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrIdentityNotFound)
}

func TestGovProvider_LookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewGovProvider(config.NewProviderParams(srv.URL, 50*time.Millisecond, time.Hour))
	_, err := p.Lookup(context.Background(), "12345678901234", "AA1234567")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrIdentityNotFound)
}

func TestMockProvider_Lookup(t *testing.T) {
	p := NewMockProvider()
	p.AddRecord(&IdentityRecord{
		DocumentSeries: "AA",
		DocumentNumber: "1234567",
		PersonalNumber: "12345678901234",
		Surname:        "ABDULLAYEV",
	})

	record, err := p.Lookup(context.Background(), "12345678901234", "AA1234567")
	assert.NoError(t, err)
	assert.Equal(t, "ABDULLAYEV", record.Surname)

	_, err = p.Lookup(context.Background(), "99999999999999", "ZZ0000000")
	assert.ErrorIs(t, err, config.ErrIdentityNotFound)

	assert.Equal(t, 2, p.Calls())
}

func TestIdentityRecord_FullName(t *testing.T) {
	record := &IdentityRecord{Surname: "ABDULLAYEV", FirstName: "ABDULLA", MiddleName: "ABDULLAYEVICH"}
	assert.Equal(t, "Abdullayev Abdulla Abdullayevich", record.FullName())

	record = &IdentityRecord{Surname: "ABDULLAYEV", FirstName: "ABDULLA"}
	assert.Equal(t, "Abdullayev Abdulla", record.FullName())
}

func TestIdentityRecord_PhotoBase64(t *testing.T) {
	record := &IdentityRecord{Photo: "dGVzdA=="}
	assert.Equal(t, "data:image/jpeg;base64,dGVzdA==", record.PhotoBase64())

	record = &IdentityRecord{Photo: "data:image/png;base64,dGVzdA=="}
	assert.Equal(t, "data:image/png;base64,dGVzdA==", record.PhotoBase64())

	record = &IdentityRecord{}
	assert.Equal(t, "", record.PhotoBase64())
}

func TestIdentityRecord_IsAlive(t *testing.T) {
	assert.True(t, (&IdentityRecord{LiveStatus: "0"}).IsAlive())
	assert.True(t, (&IdentityRecord{}).IsAlive())
	assert.False(t, (&IdentityRecord{LiveStatus: "1"}).IsAlive())
}

func TestIdentityRecord_DocumentValid(t *testing.T) {
	now := time.Now()

	valid := &IdentityRecord{DocumentEnd: now.AddDate(1, 0, 0).Format("2006-01-02")}
	assert.True(t, valid.DocumentValid(now))

	expired := &IdentityRecord{DocumentEnd: now.AddDate(-1, 0, 0).Format("2006-01-02")}
	assert.False(t, expired.DocumentValid(now))

	assert.False(t, (&IdentityRecord{}).DocumentValid(now))
}
