package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corehttpd/corehttpd/internal/config"
)

func docWith(t *testing.T, json string) *config.Document {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/doc.json"
	require.NoError(t, os.WriteFile(path, []byte(json), 0o644))
	doc, err := config.Load(path)
	require.NoError(t, err)
	return doc
}

func TestListenAddresses_DedupesAcrossVHosts(t *testing.T) {
	doc := docWith(t, `{
  "virtual_hosts": [
    {"name": "a", "interfaces": [{"address": "0.0.0.0", "port": 8080}], "cors": {}},
    {"name": "b", "interfaces": [{"address": "", "port": 8080}, {"address": "127.0.0.1", "port": 9090}], "cors": {}}
  ]
}`)

	addrs := listenAddresses(doc, ":8080")
	assert.Equal(t, []string{":8080", "127.0.0.1:9090"}, addrs)
}

func TestListenAddresses_FallsBackWithNoInterfaces(t *testing.T) {
	doc := docWith(t, `{"virtual_hosts": [{"name": "a", "cors": {}}]}`)
	assert.Equal(t, []string{":9999"}, listenAddresses(doc, ":9999"))
}

func TestApplyBenchmarkDoc_ReadsEnabledBlock(t *testing.T) {
	benchSize, benchRandom = 1000, false
	doc := docWith(t, `{
  "virtual_hosts": [
    {"name": "a", "cors": {}, "benchmark": {"enabled": true, "size": 42, "random": true}}
  ]
}`)
	applyBenchmarkDoc(doc)
	assert.Equal(t, 42, benchSize)
	assert.True(t, benchRandom)
}

func TestApplyBenchmarkDoc_IgnoresDisabledBlock(t *testing.T) {
	benchSize, benchRandom = 1000, false
	doc := docWith(t, `{
  "virtual_hosts": [
    {"name": "a", "cors": {}, "benchmark": {"enabled": false, "size": 42}}
  ]
}`)
	applyBenchmarkDoc(doc)
	assert.Equal(t, 1000, benchSize)
	assert.False(t, benchRandom)
}
