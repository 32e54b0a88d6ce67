package client

import "github.com/dmitrijs2005/stegkeeper/internal/client/models"

const (
	PathCheckCapacity = "/check_capacity"
	PathGenerateKeys  = "/generate_keys"
	PathStatus        = "/status"
)

// OperationPath selects the endpoint for a media kind and direction.
func OperationPath(kind models.MediaKind, direction models.Direction) string {
	suffix := ""
	switch kind {
	case models.MediaAudio:
		suffix = "_audio"
	case models.MediaVideo:
		suffix = "_video"
	}
	if direction == models.DirectionDecode {
		return "/decode" + suffix
	}
	return "/encode" + suffix
}
