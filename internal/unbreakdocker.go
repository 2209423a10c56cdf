package internal

import (
	"os"
	"os/exec"
	"sync"
)

var unbreakOnce sync.Once

// UnbreakDocker attaches the current container to the default docker bridge
// network so store tests running inside a dev container can reach the
// valkey and postgres containers they start.
func UnbreakDocker() {
	unbreakOnce.Do(func() {
		// XXX: This is bad code. The dev container and the test containers
		// live on different docker networks and the default bridge is the
		// one network they can share. Outside a container this fails and
		// that is fine.
		if hostname, err := os.Hostname(); err == nil {
			exec.Command("docker", "network", "connect", "bridge", hostname).Run()
		}
	})
}
