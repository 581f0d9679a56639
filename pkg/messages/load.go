package messages

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML overlay and merges it over base. Keys are the same as
// the Catalog yaml tags:
//
//	errors:
//	  POST_NOT_FOUND: "삭제되었거나 없는 게시글입니다."
//	network: "서버에 연결할 수 없습니다."
func LoadFile(path string, base Catalog) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("messages: read %s: %w", path, err)
	}
	var overlay Catalog
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return base, fmt.Errorf("messages: parse %s: %w", path, err)
	}
	return base.Merge(overlay), nil
}
