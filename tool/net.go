package tool

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// IsLoopbackHost reports whether host is "localhost" or a loopback IP literal.
func IsLoopbackHost(host string) bool {
	host = strings.TrimSpace(host)
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

// IsLoopbackIP reports whether a client IP string is a loopback address.
func IsLoopbackIP(ipStr string) bool {
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

func GetLocalIPv4Set() map[string]struct{} {
	result := make(map[string]struct{})

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return result
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip := ipnet.IP
		if ip == nil || ip.IsLoopback() {
			continue
		}

		ipv4 := ip.To4()
		if ipv4 == nil {
			continue
		}

		result[ipv4.String()] = struct{}{}
	}

	return result
}

// PreferredLANAddress returns one non-loopback IPv4 address, or "localhost".
// Private ranges win over public ones so the link works on the same LAN.
func PreferredLANAddress() string {
	set := GetLocalIPv4Set()
	if len(set) == 0 {
		return "localhost"
	}
	ips := make([]string, 0, len(set))
	for ip := range set {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	for _, s := range ips {
		if ip := net.ParseIP(s); ip != nil && ip.IsPrivate() {
			return s
		}
	}
	return ips[0]
}

// BuildClientURL returns the address clients should open, e.g. http://192.168.1.5:8080.
func BuildClientURL(protocol, host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = PreferredLANAddress()
	}
	return fmt.Sprintf("%s://%s", protocol, net.JoinHostPort(host, fmt.Sprint(port)))
}
