// Package all registers every built-in DNS provider.
package all

import (
	_ "ispdns/internal/dnspodclient"
	_ "ispdns/internal/huaweidns"
)
