// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mux

import (
	"strings"

	"golang.org/x/text/language"
)

// LanguageCode converts a BCP 47 tag to the ISO 639-3 form MP4 metadata
// expects, keeping an explicit region as a suffix ("pt-BR" -> "por-BR").
// Tags that do not parse yield "" so no language metadata is written.
func LanguageCode(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf == language.No {
		return ""
	}
	code := base.ISO3()
	if region, conf := t.Region(); conf == language.Exact {
		code += "-" + region.String()
	}
	return code
}
