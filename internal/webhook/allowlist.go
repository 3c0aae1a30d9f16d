package webhook

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"
)

// IsIPInCIDR reports whether ip lies in cidr. For IPv4 the check is
// (ip & mask) == (network & mask) with the mask built from the prefix
// length (0-32).
func IsIPInCIDR(ip, cidr string) (bool, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false, fmt.Errorf("parse ip %q: %w", ip, err)
	}
	addr = addr.Unmap()

	netStr, bitsStr, ok := strings.Cut(strings.TrimSpace(cidr), "/")
	if !ok {
		return false, fmt.Errorf("cidr %q: missing prefix length", cidr)
	}
	network, err := netip.ParseAddr(netStr)
	if err != nil {
		return false, fmt.Errorf("parse network %q: %w", cidr, err)
	}
	network = network.Unmap()
	bits, err := strconv.Atoi(bitsStr)
	if err != nil {
		return false, fmt.Errorf("cidr %q: bad prefix length", cidr)
	}

	if network.Is4() {
		if bits < 0 || bits > 32 {
			return false, fmt.Errorf("cidr %q: prefix length out of range", cidr)
		}
		if !addr.Is4() {
			return false, nil
		}
		mask := ipv4Mask(bits)
		return ipv4ToUint32(addr)&mask == ipv4ToUint32(network)&mask, nil
	}

	prefix, err := network.Prefix(bits)
	if err != nil {
		return false, fmt.Errorf("cidr %q: %w", cidr, err)
	}
	return prefix.Contains(addr), nil
}

func ipv4Mask(bits int) uint32 {
	if bits == 0 {
		return 0
	}
	return ^uint32(0) << (32 - bits)
}

func ipv4ToUint32(a netip.Addr) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

// AllowList holds the addresses permitted to call the webhook.
type AllowList struct {
	exact map[netip.Addr]struct{}
	cidrs []string
}

// NewAllowList parses literal IPs and CIDR blocks. Malformed entries are
// logged and skipped.
func NewAllowList(entries []string, log *slog.Logger) *AllowList {
	al := &AllowList{exact: make(map[netip.Addr]struct{})}
	for _, raw := range entries {
		e := strings.TrimSpace(raw)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			// validate once so Allows never sees a broken block
			if _, err := IsIPInCIDR("0.0.0.0", e); err != nil {
				log.Warn("skipping malformed allow-list entry", "entry", e, "err", err)
				continue
			}
			al.cidrs = append(al.cidrs, e)
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			log.Warn("skipping malformed allow-list entry", "entry", e, "err", err)
			continue
		}
		al.exact[addr.Unmap()] = struct{}{}
	}
	return al
}

// Len is the number of usable entries.
func (al *AllowList) Len() int { return len(al.exact) + len(al.cidrs) }

func (al *AllowList) Allows(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	if _, ok := al.exact[addr.Unmap()]; ok {
		return true
	}
	for _, c := range al.cidrs {
		if in, err := IsIPInCIDR(ip, c); err == nil && in {
			return true
		}
	}
	return false
}
