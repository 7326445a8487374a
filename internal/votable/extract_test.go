package votable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const simbadResponse = `<?xml version="1.0" encoding="utf-8"?>
<VOTABLE version="1.4">
<RESOURCE type="results">
<TABLE>
<FIELD name="id" datatype="char" arraysize="*"/>
<DATA><TABLEDATA>
<TR><TD>SAO 112345</TD></TR>
</TABLEDATA></DATA>
</TABLE>
</RESOURCE>
</VOTABLE>`

const vizierResponse = `<VOTABLE>
<TABLE name="I/131A/sao">
<FIELD name="SAO" datatype="int"/>
<FIELD name="_RAJ2000" datatype="double"/>
<FIELD name="_DEJ2000" datatype="double"/>
<FIELD name="Vmag" datatype="float"/>
<DATA><TABLEDATA>
<TR><TD> 118820 </TD><TD>083.00172</TD><TD>-00.29909</TD><TD>2.23</TD></TR>
</TABLEDATA></DATA>
</TABLE>
</VOTABLE>`

func TestNumberAfterTag(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   int
		wantOK bool
	}{
		{"votable response", simbadResponse, 112345, true},
		{"inline", "... SAO 112345 ...", 112345, true},
		{"digits run to end", "SAO 7", 7, true},
		{"tag absent", "<TABLEDATA></TABLEDATA>", 0, false},
		{"empty body", "", 0, false},
		{"non-digit after tag", "SAO X123", 0, false},
		{"space after tag", "SAO  123", 0, false},
		{"first occurrence wins", "SAO abc SAO 99", 0, false},
		{"overflow", "SAO 99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NumberAfterTag(tt.body, "SAO ")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberAfterTagEmptyTag(t *testing.T) {
	_, ok := NumberAfterTag("123", "")
	assert.False(t, ok)
}

func TestFirstCellNumber(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   int
		wantOK bool
	}{
		{"votable response", vizierResponse, 118820, true},
		{"bare cell", "<TD>118820</TD>", 118820, true},
		{"whitespace inside digits", "<TD> 11 88\t20\n</TD>", 118820, true},
		{"vertical tab and form feed", "<TD>\v118820\f\r</TD>", 118820, true},
		{"non-breaking space is not whitespace", "<TD>\u00a0118820</TD>", 0, false},
		{"next line is not whitespace", "<TD>1188\u008520</TD>", 1188, true},
		{"no markers", "<VOTABLE/>", 0, false},
		{"unterminated cell", "<TD>118820", 0, false},
		{"empty cell", "<TD>   </TD><TD>5</TD>", 0, false},
		{"non-numeric cell", "<TD>HD 1234</TD>", 0, false},
		{"decimal cell parses integer part", "<TD>83.5</TD>", 83, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstCellNumber(tt.body)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstRowCells(t *testing.T) {
	assert.Equal(t,
		[]string{"118820", "083.00172", "-00.29909", "2.23"},
		FirstRowCells(vizierResponse))

	assert.Nil(t, FirstRowCells("<TABLEDATA></TABLEDATA>"))
	assert.Nil(t, FirstRowCells("<TR><TD>1</TD>"))
	assert.Equal(t, []string{"1", ""}, FirstRowCells("<TR><TD>1</TD><TD></TD></TR><TR><TD>2</TD></TR>"))
	assert.Equal(t, []string{"B9", "\u00a0A0"}, FirstRowCells("<TR><TD>\tB9\r\n</TD><TD>\u00a0A0 </TD></TR>"))
}
