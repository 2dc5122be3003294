package network

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gr-butler/estacion/config"
)

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NMCLI manages a wifi interface through NetworkManager.
type NMCLI struct {
	Interface string
	run       runner
}

func NewNMCLI(iface string) *NMCLI {
	return &NMCLI{Interface: iface, run: execRun}
}

// Up reports whether the interface is in the connected state.
func (n *NMCLI) Up() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := n.run(ctx, "nmcli", "-t", "-f", "DEVICE,STATE", "device")
	if err != nil {
		return false
	}
	return deviceConnected(out, n.Interface)
}

func (n *NMCLI) Join(ctx context.Context, cred config.Credential) error {
	args := []string{"device", "wifi", "connect", cred.SSID}
	if cred.Password != "" {
		args = append(args, "password", cred.Password)
	}
	args = append(args, "ifname", n.Interface)
	out, err := n.run(ctx, "nmcli", args...)
	if err != nil {
		return fmt.Errorf("nmcli connect %s: %w [%s]", cred.SSID, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// deviceConnected parses `nmcli -t -f DEVICE,STATE device` output.
func deviceConnected(out []byte, iface string) bool {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		dev, state, ok := strings.Cut(sc.Text(), ":")
		if ok && dev == iface {
			return strings.HasPrefix(state, "connected")
		}
	}
	return false
}

// AlwaysUp is used when the host manages its own network.
type AlwaysUp struct{}

func (AlwaysUp) Up() bool { return true }

func (AlwaysUp) Join(context.Context, config.Credential) error { return nil }

// NewLink returns the link selected in cfg.
func NewLink(cfg config.NetworkConfig) Link {
	if cfg.Mode == "nmcli" {
		return NewNMCLI(cfg.Interface)
	}
	return AlwaysUp{}
}
