// Command uaflow-cli is an interactive client shell.
//
// It connects to a server over the framed TCP channel, the point-to-point
// HTTP fallback transport, or both, and exposes the engine's services as
// shell commands:
//
//	uaflow-cli -fallback https://plc.local/ua
//	uaflow-cli -config client.yaml
//
// Flags:
//
//	-config string    Configuration file path
//	-fallback string  Fallback transport base URL (overrides config)
//	-logfile string   Protocol event capture file (overrides config)
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/uaflow-protocol/uaflow-go/cmd/uaflow-cli/interactive"
	"github.com/uaflow-protocol/uaflow-go/pkg/client"
	"github.com/uaflow-protocol/uaflow-go/pkg/config"
	"github.com/uaflow-protocol/uaflow-go/pkg/interaction"
	"github.com/uaflow-protocol/uaflow-go/pkg/log"
	"github.com/uaflow-protocol/uaflow-go/pkg/transport"
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

func main() {
	var (
		configFile  string
		fallbackURL string
		logFile     string
	)
	flag.StringVar(&configFile, "config", "", "Configuration file path")
	flag.StringVar(&fallbackURL, "fallback", "", "Fallback transport base URL")
	flag.StringVar(&logFile, "logfile", "", "Protocol event capture file")
	flag.Parse()

	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if fallbackURL != "" {
		cfg.FallbackURL = fallbackURL
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var logger log.Logger = log.NoopLogger{}
	if cfg.LogFile != "" {
		fileLogger, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer fileLogger.Close()
		logger = fileLogger
	}

	var caller interaction.Caller
	if cfg.FallbackURL != "" {
		caller = newHTTPCaller(cfg.FallbackURL)
	}

	var channel interaction.Channel
	var reconnector *transport.Reconnector
	if cfg.EndpointURL != "" {
		reconnector = transport.NewReconnector(cfg.EndpointURL, transport.DialConfig{})
		channel = reconnector
	}

	c := client.New(cfg, channel, caller, logger)
	defer c.Close()

	if reconnector != nil {
		reconnector.SetEvents(c)
		reconnector.SetReceiver(c.Dispatcher().IngestBytes)
		reconnector.Start()
		defer reconnector.Stop()
	}

	shell, err := interactive.New(c, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	shell.Run()
}

// httpCaller issues synchronous point-to-point calls over HTTP.
type httpCaller struct {
	baseURL string
	client  *http.Client
}

func newHTTPCaller(baseURL string) *httpCaller {
	return &httpCaller{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Call implements interaction.Caller. Non-2xx responses surface as
// CallError so the engine synthesizes an error response.
func (c *httpCaller) Call(path string, payload []byte) ([]byte, error) {
	resp, err := c.client.Post(c.baseURL+path, "application/cbor", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &interaction.CallError{
			Status:  uint32(wire.StatusBadCommunicationError),
			Message: resp.Status,
		}
	}
	return body, nil
}

var _ interaction.Caller = (*httpCaller)(nil)
