package odt

// stylesXML is styles.xml. Its common and automatic styles are both
// consulted; automatic styles in content.xml shadow them.
type stylesXML struct {
	Styles     *contentStylesXML `xml:"styles"`
	AutoStyles *contentStylesXML `xml:"automatic-styles"`
}

// contentStylesXML is office:styles or office:automatic-styles.
type contentStylesXML struct {
	Styles     []styleDefXML  `xml:"style"`
	ListStyles []listStyleXML `xml:"list-style"`
}

// styleDefXML keeps the style:style attributes and properties that change
// the Markdown: heading level, page breaks and emphasis.
type styleDefXML struct {
	Name                string `xml:"name,attr"`
	Family              string `xml:"family,attr"`
	ParentStyleName     string `xml:"parent-style-name,attr"`
	DisplayName         string `xml:"display-name,attr"`
	DefaultOutlineLevel string `xml:"default-outline-level,attr"`
	Paragraph           struct {
		BreakBefore string `xml:"break-before,attr"`
	} `xml:"paragraph-properties"`
	Text struct {
		FontStyle   string `xml:"font-style,attr"`
		FontWeight  string `xml:"font-weight,attr"`
		LineThrough string `xml:"text-line-through-style,attr"`
	} `xml:"text-properties"`
}

// listStyleXML is text:list-style. Only numbered levels are kept; every
// other level renders as a bullet.
type listStyleXML struct {
	Name   string `xml:"name,attr"`
	Levels []struct {
		Level      string `xml:"level,attr"`
		NumFormat  string `xml:"num-format,attr"`
		StartValue string `xml:"start-value,attr"`
	} `xml:"list-level-style-number"`
}

// metaXML is meta.xml.
type metaXML struct {
	Title          string   `xml:"meta>title"`
	Description    string   `xml:"meta>description"`
	Subject        string   `xml:"meta>subject"`
	Keywords       []string `xml:"meta>keyword"`
	InitialCreator string   `xml:"meta>initial-creator"`
	Creator        string   `xml:"meta>creator"`
	CreationDate   string   `xml:"meta>creation-date"`
	Date           string   `xml:"meta>date"`
	Language       string   `xml:"meta>language"`
}
