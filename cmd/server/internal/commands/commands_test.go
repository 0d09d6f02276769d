package commands

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := configureHTTPServer("127.0.0.1:0", http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, zerolog.Nop(), srv, "", "") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServerCmdValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     ServerCmd
		wantErr string
	}{
		{name: "plain http", cmd: ServerCmd{}},
		{name: "tls pair", cmd: ServerCmd{Cert: "c.pem", Key: "k.pem"}},
		{name: "cert without key", cmd: ServerCmd{Cert: "c.pem"}, wantErr: "TLS requires"},
		{name: "dev short password", cmd: ServerCmd{Development: true, DevPassword: "short"}, wantErr: "dev-password"},
		{name: "dev password ok", cmd: ServerCmd{Development: true, DevPassword: "long-enough"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
