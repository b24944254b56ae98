package dou

import "strings"

// sectionLabels maps the backend's publication codes to the human-readable
// section labels used in reports: the three normal sections, lettered extra
// editions, and supplementary editions.
var sectionLabels = map[string]string{
	"DO1": "DOU - Seção 1",
	"DO2": "DOU - Seção 2",
	"DO3": "DOU - Seção 3",

	"DO1E": "DOU - Seção 1 - Edição Extra",
	"DO2E": "DOU - Seção 2 - Edição Extra",
	"DO3E": "DOU - Seção 3 - Edição Extra",

	"DO1A": "DOU - Seção 1 - Edição Extra A",
	"DO1B": "DOU - Seção 1 - Edição Extra B",
	"DO1D": "DOU - Seção 1 - Edição Extra D",
	"DO2A": "DOU - Seção 2 - Edição Extra A",
	"DO2B": "DOU - Seção 2 - Edição Extra B",
	"DO2D": "DOU - Seção 2 - Edição Extra D",
	"DO3A": "DOU - Seção 3 - Edição Extra A",
	"DO3B": "DOU - Seção 3 - Edição Extra B",
	"DO3D": "DOU - Seção 3 - Edição Extra D",

	"DO1S": "DOU - Seção 1 - Edição Suplementar",
	"DO2S": "DOU - Seção 2 - Edição Suplementar",
	"DO3S": "DOU - Seção 3 - Edição Suplementar",
}

func sectionLabel(pubName string) string {
	code := strings.ToUpper(strings.TrimSpace(pubName))
	if label, ok := sectionLabels[code]; ok {
		return label
	}
	if code == "" {
		return "DOU"
	}
	return code
}
