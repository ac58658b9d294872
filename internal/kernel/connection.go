package kernel

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// AllInterfacesIP is what the connection file's bind address is forced to so
// the kernel is reachable through the container's published ports.
const AllInterfacesIP = "0.0.0.0"

// RewriteConnectionFile loads the Jupyter connection file at path, forces its
// ip field to the all-interfaces address, writes it back in place, and
// returns the sorted set of ports found in *_port fields. Applying it twice
// yields the same file and the same ports.
func RewriteConnectionFile(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read connection file: %w", err)
	}

	var conn map[string]any
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, fmt.Errorf("parse connection file %s: %w", path, err)
	}

	conn["ip"] = AllInterfacesIP

	portSet := make(map[int]struct{})
	for key, value := range conn {
		if !strings.Contains(key, "_port") {
			continue
		}
		if port, ok := value.(float64); ok {
			portSet[int(port)] = struct{}{}
		}
	}

	out, err := json.MarshalIndent(conn, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, fmt.Errorf("rewrite connection file: %w", err)
	}

	ports := make([]int, 0, len(portSet))
	for port := range portSet {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports, nil
}
