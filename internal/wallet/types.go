package wallet

// JSON shapes for the wallet provider's generic pass REST resources. These
// are a passthrough of the remote API schema; only the fields this service
// sets are modeled.

type TranslatedString struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type LocalizedString struct {
	DefaultValue TranslatedString `json:"defaultValue"`
}

type URI struct {
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
	ID          string `json:"id,omitempty"`
}

type Image struct {
	SourceURI          URI              `json:"sourceUri"`
	ContentDescription *LocalizedString `json:"contentDescription,omitempty"`
}

type TextModule struct {
	Header string `json:"header"`
	Body   string `json:"body"`
	ID     string `json:"id"`
}

type ImageModule struct {
	MainImage Image  `json:"mainImage"`
	ID        string `json:"id"`
}

type LinksModule struct {
	URIs []URI `json:"uris"`
}

type FieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type FieldSelector struct {
	Fields []FieldReference `json:"fields"`
}

type TemplateItem struct {
	FirstValue FieldSelector `json:"firstValue"`
}

type CardRowTwoItems struct {
	StartItem TemplateItem `json:"startItem"`
	EndItem   TemplateItem `json:"endItem"`
}

type CardRowTemplateInfo struct {
	TwoItems *CardRowTwoItems `json:"twoItems,omitempty"`
}

type CardTemplateOverride struct {
	CardRowTemplateInfos []CardRowTemplateInfo `json:"cardRowTemplateInfos"`
}

type DetailsItemInfo struct {
	Item TemplateItem `json:"item"`
}

type DetailsTemplateOverride struct {
	DetailsItemInfos []DetailsItemInfo `json:"detailsItemInfos"`
}

type ClassTemplateInfo struct {
	CardTemplateOverride    CardTemplateOverride    `json:"cardTemplateOverride"`
	DetailsTemplateOverride DetailsTemplateOverride `json:"detailsTemplateOverride"`
}

// GenericClass is the shared template all pass objects of a class render
// through.
type GenericClass struct {
	ID                string            `json:"id"`
	ClassTemplateInfo ClassTemplateInfo `json:"classTemplateInfo"`
	ImageModulesData  []ImageModule     `json:"imageModulesData,omitempty"`
	TextModulesData   []TextModule      `json:"textModulesData,omitempty"`
	LinksModuleData   *LinksModule      `json:"linksModuleData,omitempty"`
}

type Barcode struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// GenericObject is a single issued pass.
type GenericObject struct {
	ID                 string          `json:"id"`
	ClassID            string          `json:"classId"`
	GenericType        string          `json:"genericType"`
	HexBackgroundColor string          `json:"hexBackgroundColor,omitempty"`
	Logo               *Image          `json:"logo,omitempty"`
	CardTitle          LocalizedString `json:"cardTitle"`
	Subheader          LocalizedString `json:"subheader"`
	Header             LocalizedString `json:"header"`
	Barcode            Barcode         `json:"barcode"`
	HeroImage          *Image          `json:"heroImage,omitempty"`
	TextModulesData    []TextModule    `json:"textModulesData,omitempty"`
}

// savePayload is the claim body of a save-to-wallet JWT.
type savePayload struct {
	GenericObjects []*GenericObject `json:"genericObjects"`
}
