package remote

import (
	"fmt"
	"strconv"
	"strings"

	"starmap-server/internal/sky"
)

const upperHex = "0123456789ABCDEF"

// EncodeQuery percent-encodes an ADQL statement for the QUERY parameter.
// Unreserved characters pass through, a space becomes '+', and every other
// byte is written as %XX with uppercase hex digits.
func EncodeQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q) * 3)

	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case isUnreserved(c):
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0F])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// identifierADQL joins SIMBAD's ident and ids tables to find the catalog
// designation attached to the same object as the provider designation.
func identifierADQL(provider string, sourceID int64, tag string) string {
	return fmt.Sprintf(
		"SELECT ident.id FROM ident JOIN ids ON ident.oidref = ids.oidref "+
			"WHERE ids.id = '%s %d' AND ident.id LIKE '%s%%'",
		provider, sourceID, tag)
}

func (c *Client) identifierURL(sourceID int64) string {
	return c.opts.SimbadURL +
		"?REQUEST=doQuery&LANG=ADQL&FORMAT=votable&QUERY=" +
		EncodeQuery(identifierADQL(c.opts.ProviderName, sourceID, c.opts.CatalogTag))
}

func (c *Client) coneURL(pos sky.Position, radiusArcsec float64) string {
	return c.opts.VizierURL +
		"?-source=" + c.opts.VizierSource +
		"&-c=" + formatFloat(pos.RA) + "+" + formatFloat(pos.Dec) +
		"&-c.rs=" + formatFloat(sky.ArcsecToDegrees(radiusArcsec)) +
		"&-out.max=1" +
		"&-out=" + coneColumns
}

func (c *Client) numberURL(number int) string {
	return c.opts.VizierURL +
		"?-source=" + c.opts.VizierSource +
		"&-out.max=1" +
		"&SAO=" + strconv.Itoa(number) +
		"&-out=" + pointColumns
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
