package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mizphses/kips/internal/logging"
	"github.com/mizphses/kips/internal/server/config"
)

// Scopes requested for wallet REST calls.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/wallet_object.issuer",
}

const (
	saveURLBase = "https://pay.google.com/gp/v/save/"

	// defaultClassCode names the pass class this issuer renders member
	// cards through.
	defaultClassCode = "member_card"
)

// Client issues generic passes through the wallet provider's REST API.
type Client struct {
	baseURL    string
	issuerID   string
	creds      *Credentials
	tokens     *TokenSource
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient builds a wallet client from the server config. ErrNotConfigured
// is returned when the service-account fields or issuer ID are absent, so
// the caller can run with pass issuance disabled.
func NewClient(cfg *config.Config, cache Cache, httpClient *http.Client, logger logging.Logger) (*Client, error) {
	if cfg.WalletIssuerID == "" {
		return nil, ErrNotConfigured
	}

	creds, err := CredentialsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    cfg.WalletBaseURL,
		issuerID:   cfg.WalletIssuerID,
		creds:      creds,
		tokens:     NewTokenSource(creds, cache, httpClient),
		httpClient: httpClient,
		logger:     logger.With("module", "wallet"),
	}, nil
}

// ClassID returns the fully qualified ID of the issuer's member card class.
func (c *Client) ClassID() string {
	return c.issuerID + "." + defaultClassCode
}

// DefaultClass builds the member card class template: points and contacts on
// the card front, banner/overview/site link in the details view.
func DefaultClass(classID string) *GenericClass {
	return &GenericClass{
		ID: classID,
		ClassTemplateInfo: ClassTemplateInfo{
			CardTemplateOverride: CardTemplateOverride{
				CardRowTemplateInfos: []CardRowTemplateInfo{{
					TwoItems: &CardRowTwoItems{
						StartItem: TemplateItem{FirstValue: FieldSelector{Fields: []FieldReference{
							{FieldPath: `object.textModulesData["points"]`},
						}}},
						EndItem: TemplateItem{FirstValue: FieldSelector{Fields: []FieldReference{
							{FieldPath: `object.textModulesData["contacts"]`},
						}}},
					},
				}},
			},
			DetailsTemplateOverride: DetailsTemplateOverride{
				DetailsItemInfos: []DetailsItemInfo{
					{Item: TemplateItem{FirstValue: FieldSelector{Fields: []FieldReference{
						{FieldPath: `class.imageModulesData["event_banner"]`},
					}}}},
					{Item: TemplateItem{FirstValue: FieldSelector{Fields: []FieldReference{
						{FieldPath: `class.textModulesData["overview"]`},
					}}}},
					{Item: TemplateItem{FirstValue: FieldSelector{Fields: []FieldReference{
						{FieldPath: `class.linksModuleData.uris["official_site"]`},
					}}}},
				},
			},
		},
		ImageModulesData: []ImageModule{{
			MainImage: Image{
				SourceURI: URI{URI: "https://kips.example.com/assets/banner.png"},
				ContentDescription: &LocalizedString{DefaultValue: TranslatedString{
					Language: "en-US",
					Value:    "Kips member card banner",
				}},
			},
			ID: "event_banner",
		}},
		TextModulesData: []TextModule{{
			Header: "About this card",
			Body:   "Shows your points balance and registered contacts.",
			ID:     "overview",
		}},
		LinksModuleData: &LinksModule{URIs: []URI{{
			URI:         "https://kips.example.com",
			Description: "Kips",
			ID:          "official_site",
		}}},
	}
}

// EnsureClass checks whether the class exists at the provider and creates it
// when absent. Returns true when a class was created, false when it already
// existed.
func (c *Client) EnsureClass(ctx context.Context, class *GenericClass) (bool, error) {
	token, err := c.tokens.Token(ctx, Scopes)
	if err != nil {
		return false, err
	}

	status, err := c.do(ctx, http.MethodGet, c.baseURL+"/genericClass/"+class.ID, token, nil)
	if err != nil {
		return false, err
	}

	switch status {
	case http.StatusOK:
		c.logger.Debug(ctx, "pass class already exists", "class_id", class.ID)
		return false, nil
	case http.StatusNotFound:
		// Fall through to create.
	default:
		return false, fmt.Errorf("class lookup failed: status %d", status)
	}

	status, err = c.do(ctx, http.MethodPost, c.baseURL+"/genericClass", token, class)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("class creation failed: status %d", status)
	}

	c.logger.Info(ctx, "pass class created", "class_id", class.ID)
	return true, nil
}

// BuildObject assembles a pass object for the given class carrying content
// as its QR code value. The object ID is issuer-qualified and random.
func (c *Client) BuildObject(classID, content string) *GenericObject {
	objectID := c.issuerID + "." + uuid.NewString()

	return &GenericObject{
		ID:                 objectID,
		ClassID:            classID,
		GenericType:        "GENERIC_TYPE_UNSPECIFIED",
		HexBackgroundColor: "#4285f4",
		Logo: &Image{SourceURI: URI{
			URI: "https://kips.example.com/assets/logo.png",
		}},
		CardTitle: LocalizedString{DefaultValue: TranslatedString{
			Language: "en-US", Value: "Kips Pass",
		}},
		Subheader: LocalizedString{DefaultValue: TranslatedString{
			Language: "en-US", Value: "Member",
		}},
		Header: LocalizedString{DefaultValue: TranslatedString{
			Language: "en-US", Value: "Kips",
		}},
		Barcode: Barcode{Type: "QR_CODE", Value: content},
		HeroImage: &Image{SourceURI: URI{
			URI: "https://kips.example.com/assets/hero.png",
		}},
		TextModulesData: []TextModule{
			{Header: "POINTS", Body: "0", ID: "points"},
			{Header: "CONTACTS", Body: "0", ID: "contacts"},
		},
	}
}

// SaveURL signs a save-to-wallet JWT over the given objects and returns the
// link a user opens to add the pass.
func (c *Client) SaveURL(objects ...*GenericObject) (string, error) {
	claims := jwt.MapClaims{
		"iss":     c.creds.ClientEmail,
		"aud":     "google",
		"typ":     "savetowallet",
		"origins": []string{},
		"payload": savePayload{GenericObjects: objects},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.creds.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("error signing save jwt: %w", err)
	}

	return saveURLBase + token, nil
}

// do performs one authenticated JSON request and returns the response
// status. Response bodies are drained and discarded; callers only branch on
// status.
func (c *Client) do(ctx context.Context, method, url, token string, payload any) (int, error) {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("error encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("wallet request error: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
