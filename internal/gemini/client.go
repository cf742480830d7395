// Package gemini implements integration with Google's Gemini AI API.
// It provides the vision and free-text extraction layer of the ingestion
// pipeline: image classification, document analysis, and slip-text parsing.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/slipledger/slipbot/internal/config"
	"github.com/slipledger/slipbot/internal/slip"
)

// Client defines the AI extraction operations used by the pipeline. All
// methods return structured results; free-form generation is not exposed.
type Client interface {
	// AnalyzeImage classifies an image as an identity document or a bank
	// transfer receipt and extracts the corresponding fields.
	AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*slip.ImageAnalysis, error)

	// AnalyzeDocument extracts transfer-slip fields from a document
	// attachment. Returns (nil, nil) when the document is not a slip.
	AnalyzeDocument(ctx context.Context, docData []byte, mimeType string) (*slip.SlipAnalysis, error)

	// ExtractSlipText extracts transfer-slip fields from free text. Returns
	// (nil, nil) when nothing useful was found.
	ExtractSlipText(ctx context.Context, text string) (*slip.SlipAnalysis, error)
}

type sdkClient struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
}

// NewClient creates a new Gemini AI client with the provided configuration.
// It initializes the connection to the Gemini API and sets up necessary parameters.
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	log *slog.Logger,
) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	baseCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return &sdkClient{
		genaiClient:      gi,
		log:              logger,
		contentConfig:    baseCfg,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var genAiAPIError *genai.APIError
		if errors.As(err, &genAiAPIError) && (genAiAPIError.Code == 500 || genAiAPIError.Code == 503) { // Retriable HTTP codes
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", genAiAPIError.Code)
				time.Sleep(c.retryDelay)
				continue
			}
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", genAiAPIError.Code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, genAiAPIError.Code, err)
		}

		c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	return nil, err
}

// generateJSON runs a schema-constrained generation and returns the raw JSON
// text of the first candidate.
func (c *sdkClient) generateJSON(ctx context.Context, contents []*genai.Content, schema *genai.Schema) (string, error) {
	copyCfg := *c.contentConfig
	copyCfg.ResponseMIMEType = "application/json"
	copyCfg.ResponseSchema = schema

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, &copyCfg)
	if err != nil {
		return "", err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("gemini request blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("gemini returned no content, finish reason: %s", finishReason)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

const imageAnalysisPrompt = `请分析这张图片的内容。判断它是"证件照片"(id_card)还是"银行转账单"(transfer_receipt)。

如果是【证件照片】(如护照、身份证、驾照)：
- 提取姓名 (name)
- 提取出生日期 (birth_date) - 格式 YYYY-MM-DD 或 YYYY
- 提取国籍 (nationality)

如果是【银行转账单】：
- 提取转账金额 (amount) - 纯数字
- 提取币种 (currency) - 3位代码
- 提取收款人姓名 (recipient_name)
- 提取收款账号 (account_number)
- 提取银行名称 (bank_name)
- 提取转账日期 (transfer_date) - YYYY-MM-DD

请返回JSON格式数据。`

var imageAnalysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"image_type":     {Type: genai.TypeString, Enum: []string{"id_card", "transfer_receipt", "other"}},
		"name":           {Type: genai.TypeString},
		"birth_date":     {Type: genai.TypeString},
		"nationality":    {Type: genai.TypeString},
		"amount":         {Type: genai.TypeNumber},
		"currency":       {Type: genai.TypeString},
		"recipient_name": {Type: genai.TypeString},
		"account_number": {Type: genai.TypeString},
		"bank_name":      {Type: genai.TypeString},
		"transfer_date":  {Type: genai.TypeString},
	},
	Required: []string{"image_type"},
}

type imageAnalysisResult struct {
	ImageType     string  `json:"image_type"`
	Name          string  `json:"name"`
	BirthDate     string  `json:"birth_date"`
	Nationality   string  `json:"nationality"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	RecipientName string  `json:"recipient_name"`
	AccountNumber string  `json:"account_number"`
	BankName      string  `json:"bank_name"`
	TransferDate  string  `json:"transfer_date"`
}

func (c *sdkClient) AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*slip.ImageAnalysis, error) {
	c.log.DebugContext(ctx, "Analyzing image", "image_size", len(imageData), "mime_type", mimeType)
	if len(imageData) == 0 || mimeType == "" {
		return nil, fmt.Errorf("image data and MIME type are required for analysis")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(imageAnalysisPrompt),
			genai.NewPartFromBytes(imageData, mimeType),
		}, genai.RoleUser),
	}

	jsonText, err := c.generateJSON(ctx, contents, imageAnalysisSchema)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini image analysis failed", "error", err)
		return nil, fmt.Errorf("gemini image analysis failed: %w", err)
	}

	var result imageAnalysisResult
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse image analysis JSON from Gemini response", "error", err, "response_text", jsonText)
		return nil, fmt.Errorf("invalid image analysis JSON received: %w", err)
	}

	kind := slip.ImageKind(result.ImageType)
	switch kind {
	case slip.KindIDCard, slip.KindTransferReceipt:
	default:
		kind = slip.KindOther
	}

	c.log.DebugContext(ctx, "Image analysis complete", "image_type", kind)
	return &slip.ImageAnalysis{
		Kind:          kind,
		Name:          result.Name,
		BirthDate:     result.BirthDate,
		Nationality:   result.Nationality,
		Amount:        result.Amount,
		Currency:      result.Currency,
		RecipientName: result.RecipientName,
		AccountNumber: result.AccountNumber,
		BankName:      result.BankName,
		TransferDate:  result.TransferDate,
	}, nil
}

const documentAnalysisPrompt = `请分析这份文档，提取转账水单信息。如果是水单，提取以下字段：
- currency (币种代码), amount (金额,数字), customer_name (汇款人姓名)
- receiving_account_name (收款人/公司名), receiving_account_number (收款账号/IBAN)
- bank_name (银行名称), date (日期 YYYY-MM-DD)
如果不是水单，返回 null。`

var slipFieldsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"currency":                 {Type: genai.TypeString},
		"amount":                   {Type: genai.TypeNumber},
		"customer_name":            {Type: genai.TypeString},
		"receiving_account_name":   {Type: genai.TypeString},
		"receiving_account_number": {Type: genai.TypeString},
		"bank_name":                {Type: genai.TypeString},
		"date":                     {Type: genai.TypeString},
		"maintenance_days":         {Type: genai.TypeNumber},
	},
}

type slipFieldsResult struct {
	Currency               string  `json:"currency"`
	Amount                 float64 `json:"amount"`
	CustomerName           string  `json:"customer_name"`
	ReceivingAccountName   string  `json:"receiving_account_name"`
	ReceivingAccountNumber string  `json:"receiving_account_number"`
	BankName               string  `json:"bank_name"`
	Date                   string  `json:"date"`
	MaintenanceDays        float64 `json:"maintenance_days"`
}

func (r *slipFieldsResult) toAnalysis() *slip.SlipAnalysis {
	return &slip.SlipAnalysis{
		Currency:               r.Currency,
		Amount:                 r.Amount,
		CustomerName:           r.CustomerName,
		ReceivingAccountName:   r.ReceivingAccountName,
		ReceivingAccountNumber: r.ReceivingAccountNumber,
		BankName:               r.BankName,
		Date:                   r.Date,
		MaintenanceDays:        int(r.MaintenanceDays),
	}
}

func (c *sdkClient) AnalyzeDocument(ctx context.Context, docData []byte, mimeType string) (*slip.SlipAnalysis, error) {
	c.log.DebugContext(ctx, "Analyzing document", "doc_size", len(docData), "mime_type", mimeType)
	if len(docData) == 0 || mimeType == "" {
		return nil, fmt.Errorf("document data and MIME type are required for analysis")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(documentAnalysisPrompt),
			genai.NewPartFromBytes(docData, mimeType),
		}, genai.RoleUser),
	}

	jsonText, err := c.generateJSON(ctx, contents, slipFieldsSchema)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini document analysis failed", "error", err)
		return nil, fmt.Errorf("gemini document analysis failed: %w", err)
	}

	var result slipFieldsResult
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse document analysis JSON from Gemini response", "error", err, "response_text", jsonText)
		return nil, fmt.Errorf("invalid document analysis JSON received: %w", err)
	}

	// A document without an amount is not a transfer slip.
	if result.Amount == 0 {
		c.log.DebugContext(ctx, "Document is not a transfer slip, no amount extracted")
		return nil, nil
	}

	return result.toAnalysis(), nil
}

const textExtractionPromptFmt = `请仔细分析以下转账水单文本，提取关键信息并返回JSON。

文本内容:
%s

请提取以下字段：
- currency (币种代码,如USD, EUR, CNY等)
- amount (金额,数字)
- customer_name (汇款人姓名)
- receiving_account_name (收款人/公司名)
- receiving_account_number (收款账号/IBAN)
- bank_name (银行名称)
- date (日期 YYYY-MM-DD)
- maintenance_days (维护期天数, 数字)

注意: 币种请使用标准3位代码，金额请返回纯数字，找不到的字段返回null`

func (c *sdkClient) ExtractSlipText(ctx context.Context, text string) (*slip.SlipAnalysis, error) {
	c.log.DebugContext(ctx, "Extracting slip fields from text", "text_length", len(text))
	if text == "" {
		return nil, nil
	}

	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(textExtractionPromptFmt, text), genai.RoleUser),
	}

	jsonText, err := c.generateJSON(ctx, contents, slipFieldsSchema)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini text extraction failed", "error", err)
		return nil, fmt.Errorf("gemini text extraction failed: %w", err)
	}

	var result slipFieldsResult
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse text extraction JSON from Gemini response", "error", err, "response_text", jsonText)
		return nil, fmt.Errorf("invalid text extraction JSON received: %w", err)
	}

	if result == (slipFieldsResult{}) {
		return nil, nil
	}
	return result.toAnalysis(), nil
}
