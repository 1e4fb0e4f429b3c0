package net

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// LinkScheme prefixes shareable join links, e.g. canvasboard://10.0.0.5:8080/sketch.
const LinkScheme = "canvasboard"

var ErrInvalidLink = errors.New("invalid join link")

// ParseJoinLink splits a join link into the relay endpoint and room id.
func ParseJoinLink(link string) (endpoint, roomID string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if u.Scheme != LinkScheme || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	roomID = strings.Trim(u.Path, "/")
	if roomID == "" || strings.Contains(roomID, "/") {
		return "", "", fmt.Errorf("%w: missing room in %q", ErrInvalidLink, link)
	}
	return "ws://" + u.Host, roomID, nil
}

// JoinLink builds the link peers can open to join roomID on the relay at
// endpoint.
func JoinLink(endpoint, roomID string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: endpoint %q", ErrInvalidLink, endpoint)
	}
	link := url.URL{Scheme: LinkScheme, Host: u.Host, Path: "/" + roomID}
	return link.String(), nil
}
