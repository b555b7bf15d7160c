// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromConnectionStringParsesFields(t *testing.T) {
	cs := &connectionSettings{}
	err := cs.fromConnectionString(
		"HostName=localhost;TcpPort=1883;ClientId=foo;UseTls=true;KeepAlive=PT30S",
	)
	require.NoError(t, err)

	require.Equal(t, "tls://localhost:1883", cs.serverURL)
	require.Equal(t, "foo", cs.clientID)
	require.True(t, cs.useTLS)
	require.Equal(t, 30*time.Second, cs.keepAlive)
}

func TestFromConnectionStringRequiresHostNameAndPort(t *testing.T) {
	cs := &connectionSettings{}
	err := cs.fromConnectionString("ClientId=foo")
	require.Error(t, err)

	cs = &connectionSettings{}
	err = cs.fromConnectionString("HostName=localhost")
	require.Error(t, err)
}

func TestFromConnectionStringDefaultsClientIDAndReceiveMaximum(t *testing.T) {
	cs := &connectionSettings{}
	err := cs.fromConnectionString("HostName=localhost;TcpPort=1883")
	require.NoError(t, err)

	require.NotEmpty(t, cs.clientID)
	require.Equal(t, defaultReceiveMaximum, cs.receiveMaximum)
}

func TestFilePasswordProviderRereadsFileOnEachCall(t *testing.T) {
	dir := t.TempDir()
	passwordFile := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("v1"), 0o600))

	provider := filePasswordProvider(passwordFile)

	flag, got, err := provider(context.Background())
	require.NoError(t, err)
	require.True(t, flag)
	require.Equal(t, []byte("v1"), got)

	require.NoError(t, os.WriteFile(passwordFile, []byte("v2"), 0o600))

	flag, got, err = provider(context.Background())
	require.NoError(t, err)
	require.True(t, flag)
	require.Equal(t, []byte("v2"), got)
}

func TestFilePasswordProviderReturnsErrorForMissingFile(t *testing.T) {
	provider := filePasswordProvider(filepath.Join(t.TempDir(), "missing"))

	flag, _, err := provider(context.Background())
	require.Error(t, err)
	require.False(t, flag)
}

func TestConstantPasswordProviderAlwaysSetsFlag(t *testing.T) {
	provider := constantPasswordProvider([]byte("static"))

	flag, got, err := provider(context.Background())
	require.NoError(t, err)
	require.True(t, flag)
	require.Equal(t, []byte("static"), got)
}

func TestApplySettingsMapPasswordFileTakesPrecedenceOverPassword(t *testing.T) {
	dir := t.TempDir()
	passwordFile := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("from-file"), 0o600))

	cs := &connectionSettings{}
	err := cs.fromConnectionString(
		"HostName=localhost;TcpPort=1883;Password=static;PasswordFile=" + passwordFile,
	)
	require.NoError(t, err)

	flag, got, err := cs.passwordProvider(context.Background())
	require.NoError(t, err)
	require.True(t, flag)
	require.Equal(t, []byte("from-file"), got)
}

func TestApplySettingsMapDefaultsFirstConnectionCleanStartTrue(t *testing.T) {
	cs := &connectionSettings{}
	err := cs.fromConnectionString("HostName=localhost;TcpPort=1883")
	require.NoError(t, err)

	require.True(t, cs.firstConnectionCleanStart)
}

func TestValidateRejectsKeepAliveBeyondMax(t *testing.T) {
	cs := &connectionSettings{
		serverURL: "tcp://localhost:1883",
		keepAlive: time.Duration(int(maxKeepAlive)+1) * time.Second,
	}
	err := cs.validate()
	require.Error(t, err)
	var invalidArg *InvalidArgumentError
	require.ErrorAs(t, err, &invalidArg)
}

func TestValidateTLSRejectsTLSOptionsWhenUseTLSDisabled(t *testing.T) {
	cs := &connectionSettings{certFile: "cert.pem"}
	err := cs.validateTLS()
	require.Error(t, err)
}
