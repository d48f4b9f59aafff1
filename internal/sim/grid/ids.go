package grid

import (
	"fmt"
	"strconv"
	"strings"
)

// ContainerID renders KIND@space:x,y,z.
func ContainerID(kind string, p Pos) string {
	return fmt.Sprintf("%s@%s:%d,%d,%d", kind, p.Space, p.X, p.Y, p.Z)
}

func ParseContainerID(id string) (kind string, p Pos, ok bool) {
	parts := strings.SplitN(id, "@", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", Pos{}, false
	}
	kind = parts[0]
	i := strings.LastIndexByte(parts[1], ':')
	if i < 0 {
		return "", Pos{}, false
	}
	space := parts[1][:i]
	coord := strings.Split(parts[1][i+1:], ",")
	if space == "" || len(coord) != 3 {
		return "", Pos{}, false
	}
	x, err1 := strconv.Atoi(coord[0])
	y, err2 := strconv.Atoi(coord[1])
	z, err3 := strconv.Atoi(coord[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", Pos{}, false
	}
	return kind, Pos{Space: space, X: x, Y: y, Z: z}, true
}
