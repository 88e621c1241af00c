package ldhttp

import (
	"encoding/pem"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSelfSignedServer(handler http.Handler, fn func(server *httptest.Server, certPEM []byte)) {
	server := httptest.NewTLSServer(handler)
	defer server.Close()
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	fn(server, certPEM)
}

func alwaysOKHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})
}

func TestDefaultTransportDoesNotAcceptSelfSignedCert(t *testing.T) {
	withSelfSignedServer(alwaysOKHandler(), func(server *httptest.Server, certPEM []byte) {
		transport, _, err := NewHTTPTransport()
		require.NoError(t, err)

		client := *http.DefaultClient
		client.Transport = transport
		_, err = client.Get(server.URL)
		require.Error(t, err)
	})
}

func TestCanAcceptSelfSignedCertWithCA(t *testing.T) {
	withSelfSignedServer(alwaysOKHandler(), func(server *httptest.Server, certPEM []byte) {
		transport, _, err := NewHTTPTransport(CACertOption(certPEM))
		require.NoError(t, err)

		client := *http.DefaultClient
		client.Transport = transport
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})
}

func TestErrorForNonexistentCertFile(t *testing.T) {
	f, err := ioutil.TempFile("", "ldhttp-test")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())
	require.NoError(t, os.Remove(path))

	_, _, err = NewHTTPTransport(CACertFileOption(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't read CA certificate file")
}

func TestErrorForCertFileWithBadData(t *testing.T) {
	f, err := ioutil.TempFile("", "ldhttp-test")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = f.Write([]byte("sorry"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = NewHTTPTransport(CACertFileOption(f.Name()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CA certificate data")
}

func TestErrorForBadCertData(t *testing.T) {
	_, _, err := NewHTTPTransport(CACertOption([]byte("sorry")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CA certificate data")
}

func TestProxyEnvVarsAreUsedByDefault(t *testing.T) {
	transport, _, err := NewHTTPTransport()
	require.NoError(t, err)
	require.NotNil(t, transport.Proxy)
	assert.Equal(t, reflect.ValueOf(http.ProxyFromEnvironment).Pointer(), reflect.ValueOf(transport.Proxy).Pointer())
}

func TestCanSetProxyURL(t *testing.T) {
	u, err := url.Parse("https://fake-proxy")
	require.NoError(t, err)
	transport, _, err := NewHTTPTransport(ProxyOption(*u))
	require.NoError(t, err)
	require.NotNil(t, transport.Proxy)
	urlOut, err := transport.Proxy(&http.Request{})
	require.NoError(t, err)
	assert.Equal(t, u, urlOut)
}

func TestConnectTimeoutDefaultsWhenNotSet(t *testing.T) {
	_, timeout, err := NewHTTPTransport()
	require.NoError(t, err)
	assert.Equal(t, DefaultConnectTimeout, timeout)
}

func TestConnectTimeoutCanBeSet(t *testing.T) {
	_, timeout, err := NewHTTPTransport(ConnectTimeoutOption(3 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, timeout)
}
