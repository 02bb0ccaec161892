// Package interactive provides the interactive command-line interface
// for the uaflow client.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/uaflow-protocol/uaflow-go/pkg/client"
	"github.com/uaflow-protocol/uaflow-go/pkg/config"
	"github.com/uaflow-protocol/uaflow-go/pkg/discovery"
	"github.com/uaflow-protocol/uaflow-go/pkg/interaction"
	"github.com/uaflow-protocol/uaflow-go/pkg/subscription"
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// cliCallerHandle tags requests issued from the shell so their responses
// can be drained without touching other consumers' entries.
const cliCallerHandle = 1

// Shell handles interactive mode for uaflow-cli.
type Shell struct {
	client *client.Client
	config config.Config
	rl     *readline.Instance
}

// New creates an interactive shell over the client.
func New(c *client.Client, cfg config.Config) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "uaflow> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{client: c, config: cfg, rl: rl}, nil
}

// Run starts the interactive command loop.
func (s *Shell) Run() {
	defer s.rl.Close()

	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "status":
			s.cmdStatus()

		case "discover":
			s.cmdDiscover()

		case "read", "r":
			s.cmdRead(args)

		case "write", "w":
			s.cmdWrite(args)

		case "browse", "b":
			s.cmdBrowse(args)

		case "translate", "t":
			s.cmdTranslate(args)

		case "session":
			s.cmdSession(args)

		case "monitor", "m":
			s.cmdMonitor(args)

		case "unmonitor":
			s.cmdUnmonitor(args)

		case "items":
			s.cmdItems()

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
uaflow Client Commands:
  Services:
    read <node-id>                - Read the Value attribute
    write <node-id> <value>       - Write the Value attribute
    browse <node-id>              - Browse forward references
    translate <node-id> <path>    - Resolve a browse path (e.g. 3:Motor/3:Speed)

  Session:
    session on|off                - Enable or disable the session

  Monitoring:
    monitor <node-id>             - Create a monitored item
    unmonitor <client-handle>     - Delete a monitored item
    items                         - List monitored items

  General:
    discover                      - Find servers via mDNS
    status                        - Show engine state
    help                          - Show this help
    quit                          - Exit

  Node Id Format:
    ns=<n>;i=<numeric> | ns=<n>;s=<string> | g=<uuid>`)
}

// drain collects the shell's own responses. With the synchronous fallback
// transport they are available as soon as the send returns.
func (s *Shell) drain() []interaction.Completed {
	return s.client.ProcessMessages(interaction.MatchCallerHandle(cliCallerHandle))
}

func (s *Shell) cmdStatus() {
	out := s.rl.Stdout()
	fmt.Fprintf(out, "Client:             %s\n", s.client.ID())
	fmt.Fprintf(out, "Channel open:       %v\n", s.client.IsConnected())
	fmt.Fprintf(out, "Session state:      %s\n", s.client.SessionState())
	fmt.Fprintf(out, "Subscription state: %s\n", s.client.SubscriptionState())
	fmt.Fprintf(out, "Last sequence:      %d\n", s.client.LastSequenceNumber())
}

func (s *Shell) cmdDiscover() {
	out := s.rl.Stdout()
	fmt.Fprintln(out, "Browsing for servers (5s)...")

	browser := discovery.NewBrowser(discovery.DefaultBrowserConfig())
	defer browser.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	servers, err := browser.Browse(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	found := 0
	for svc := range servers {
		found++
		fmt.Fprintf(out, "  %-24s %s\n", svc.InstanceName, svc.EndpointURL())
	}
	if found == 0 {
		fmt.Fprintln(out, "No servers found")
	}
}

func (s *Shell) cmdRead(args []string) {
	out := s.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: read <node-id>")
		return
	}
	nodeID, err := wire.ParseNodeID(args[0])
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	_, err = s.client.Read(&wire.ReadParams{
		TimestampsToReturn: wire.TimestampsBoth,
		NodesToRead: []wire.ReadValueID{
			{NodeID: nodeID, AttributeID: wire.AttributeValue},
		},
	}, cliCallerHandle)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	for _, entry := range s.drain() {
		if err := wire.ServiceError(entry.Response.Header); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		var result wire.ReadResultSet
		if err := entry.Response.DecodePayload(&result); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		for _, value := range result.Results {
			printValue(out, args[0], value)
		}
	}
}

func (s *Shell) cmdWrite(args []string) {
	out := s.rl.Stdout()
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: write <node-id> <value>")
		return
	}
	nodeID, err := wire.ParseNodeID(args[0])
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	_, err = s.client.Write(&wire.WriteParams{
		NodesToWrite: []wire.WriteValue{{
			NodeID:      nodeID,
			AttributeID: wire.AttributeValue,
			Value:       wire.DataValue{Value: parseValue(args[1])},
		}},
	}, cliCallerHandle)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	for _, entry := range s.drain() {
		if err := wire.ServiceError(entry.Response.Header); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		var result wire.WriteResultSet
		if err := entry.Response.DecodePayload(&result); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		for _, status := range result.Results {
			fmt.Fprintf(out, "  %s\n", status)
		}
	}
}

func (s *Shell) cmdBrowse(args []string) {
	out := s.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: browse <node-id>")
		return
	}
	nodeID, err := wire.ParseNodeID(args[0])
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	_, err = s.client.Browse(&wire.BrowseParams{
		NodesToBrowse: []wire.BrowseDescription{{
			NodeID:    nodeID,
			Direction: wire.BrowseDirectionForward,
		}},
	}, cliCallerHandle)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	for _, entry := range s.drain() {
		if err := wire.ServiceError(entry.Response.Header); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		var result wire.BrowseResultSet
		if err := entry.Response.DecodePayload(&result); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		for _, br := range result.Results {
			if br.StatusCode.IsBad() {
				fmt.Fprintf(out, "  %s\n", br.StatusCode)
				continue
			}
			for _, ref := range br.References {
				fmt.Fprintf(out, "  %-32s %s\n", ref.BrowseName, ref.NodeID)
			}
		}
	}
}

func (s *Shell) cmdTranslate(args []string) {
	out := s.rl.Stdout()
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: translate <node-id> <path>")
		return
	}
	nodeID, err := wire.ParseNodeID(args[0])
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	relative, err := parseRelativePath(args[1])
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	_, err = s.client.TranslateBrowsePaths(&wire.TranslateBrowsePathsParams{
		BrowsePaths: []wire.BrowsePath{{StartingNode: nodeID, RelativePath: *relative}},
	}, cliCallerHandle)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	for _, entry := range s.drain() {
		if err := wire.ServiceError(entry.Response.Header); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		var result wire.TranslateBrowsePathsResultSet
		if err := entry.Response.DecodePayload(&result); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		for _, r := range result.Results {
			if r.StatusCode.IsBad() {
				fmt.Fprintf(out, "  %s\n", r.StatusCode)
				continue
			}
			for _, target := range r.Targets {
				fmt.Fprintf(out, "  %s\n", target.TargetID)
			}
		}
	}
}

func (s *Shell) cmdSession(args []string) {
	out := s.rl.Stdout()
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(out, "Usage: session on|off")
		return
	}
	s.client.Session().SetEnabled(args[0] == "on")
	fmt.Fprintf(out, "Session state: %s\n", s.client.SessionState())
}

func (s *Shell) cmdMonitor(args []string) {
	out := s.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: monitor <node-id>")
		return
	}
	nodeID, err := wire.ParseNodeID(args[0])
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	item := &subscription.MonitoredItem{NodeID: nodeID}
	if err := s.client.Subscribe([]*subscription.MonitoredItem{item}, cliCallerHandle); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	s.drain()
	if item.Err != nil {
		fmt.Fprintf(out, "Error: %v\n", item.Err)
		return
	}
	fmt.Fprintf(out, "Monitoring %s (client handle %d)\n", args[0], item.ClientHandle)
}

func (s *Shell) cmdUnmonitor(args []string) {
	out := s.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: unmonitor <client-handle>")
		return
	}
	handle, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if err := s.client.Unsubscribe(uint32(handle)); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Removed")
}

func (s *Shell) cmdItems() {
	out := s.rl.Stdout()
	items := s.client.Subscription().Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "No monitored items")
		return
	}
	for handle, item := range items {
		status := "pending"
		switch {
		case item.Err != nil:
			status = item.Err.Error()
		case item.ServerID != 0:
			status = fmt.Sprintf("server id %d", item.ServerID)
		}
		fmt.Fprintf(out, "  %6d  %-28s %s\n", handle, item.NodeID, status)
	}
}

// parseRelativePath parses "3:Motor/3:Speed" into path elements.
func parseRelativePath(s string) (*wire.RelativePath, error) {
	var elements []wire.RelativePathElement
	for _, segment := range strings.Split(s, "/") {
		name, err := wire.ParseQualifiedName(segment)
		if err != nil {
			return nil, err
		}
		elements = append(elements, wire.RelativePathElement{
			IncludeSubtypes: true,
			TargetName:      name,
		})
	}
	return &wire.RelativePath{Elements: elements}, nil
}

// parseValue interprets a shell argument as bool, int, float, or string.
func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func printValue(out io.Writer, node string, value wire.DataValue) {
	if value.Status.IsBad() {
		fmt.Fprintf(out, "  %s = <%s>\n", node, value.Status)
		return
	}
	fmt.Fprintf(out, "  %s = %v\n", node, value.Value)
}
