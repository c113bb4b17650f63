package handler

import (
	"mrzgate/internal/mrz"
	"mrzgate/internal/scan"
)

// ExtractResponse is the HTTP response for POST /extract-mrz.
type ExtractResponse struct {
	Status          string               `json:"status"`
	OCRRawLines     []string             `json:"ocr_raw_lines"`
	NormalizedLines []string             `json:"normalized_lines"`
	Parsed          *ParsedResponse      `json:"parsed"`
	Corrections     []CorrectionResponse `json:"corrections"`
	Engine          string               `json:"engine"`
	Stage           string               `json:"stage"`
	Attempts        []AttemptResponse    `json:"attempts"`
	Region          RegionResponse       `json:"region"`
	BACKeys         *BACKeysResponse     `json:"bac_keys,omitempty"`
	BACError        string               `json:"bac_error,omitempty"`
	DebugImages     []string             `json:"debug_images,omitempty"`
}

// ParsedResponse is the parsed TD3 record.
type ParsedResponse struct {
	DocumentType   string `json:"document_type"`
	IssuingCountry string `json:"issuing_country"`
	Surname        string `json:"surname"`
	GivenNames     string `json:"given_names"`
	Nationality    string `json:"nationality"`
	Sex            string `json:"sex"`

	DocumentNumber      string `json:"document_number"`
	DocumentNumberCheck string `json:"document_number_check"`
	DocumentNumberValid bool   `json:"document_number_valid"`

	BirthDate      string `json:"birth_date"`
	BirthDateISO   string `json:"birth_date_iso"`
	BirthDateCheck string `json:"birth_date_check"`
	BirthDateValid bool   `json:"birth_date_valid"`

	ExpiryDate      string `json:"expiry_date"`
	ExpiryDateISO   string `json:"expiry_date_iso"`
	ExpiryDateCheck string `json:"expiry_date_check"`
	ExpiryDateValid bool   `json:"expiry_date_valid"`

	PersonalNumber      string `json:"personal_number"`
	PersonalNumberCheck string `json:"personal_number_check"`
	PersonalNumberValid bool   `json:"personal_number_valid"`

	CompositeCheck string `json:"composite_check"`
	CompositeValid bool   `json:"composite_valid"`
	Valid          bool   `json:"valid"`

	RawLines     []string `json:"raw_lines"`
	CleanedLines []string `json:"cleaned_lines,omitempty"`
}

// CorrectionResponse describes one field repair attempt.
type CorrectionResponse struct {
	Field    string `json:"field"`
	Before   string `json:"before"`
	After    string `json:"after"`
	Attempts int    `json:"attempts"`
	Fixed    bool   `json:"fixed"`
}

// AttemptResponse is one recognition engine attempt.
type AttemptResponse struct {
	Engine     string `json:"engine"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Lines      int    `json:"lines"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// RegionResponse is where the band was found in the deskewed frame.
type RegionResponse struct {
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Located     bool    `json:"located"`
	SkewDegrees float64 `json:"skew_degrees"`
}

// BACKeysResponse carries the derived keys in upper-case hex.
type BACKeysResponse struct {
	Kenc string `json:"kenc"`
	Kmac string `json:"kmac"`
}

// FromResult converts a scan result to an HTTP response.
func FromResult(res *scan.Result) *ExtractResponse {
	resp := &ExtractResponse{
		Status:          "success",
		OCRRawLines:     nonNil(res.RawLines),
		NormalizedLines: nonNil(res.Reading.Normalized),
		Corrections:     make([]CorrectionResponse, 0, len(res.Reading.Corrections)),
		Engine:          res.Engine,
		Stage:           string(res.Stage),
		Attempts:        make([]AttemptResponse, 0, len(res.Attempts)),
		Region: RegionResponse{
			X:           res.Region.Min.X,
			Y:           res.Region.Min.Y,
			Width:       res.Region.Dx(),
			Height:      res.Region.Dy(),
			Located:     res.RegionLocated,
			SkewDegrees: res.SkewDegrees,
		},
		DebugImages: res.DebugImages,
	}
	if rec := res.Record(); rec != nil {
		resp.Parsed = fromRecord(rec, res.Reading.Cleaned)
	}
	for _, c := range res.Reading.Corrections {
		resp.Corrections = append(resp.Corrections, CorrectionResponse(c))
	}
	for _, a := range res.Attempts {
		ar := AttemptResponse{
			Engine:     a.Engine,
			Stage:      string(a.Stage),
			Status:     string(a.Status),
			Lines:      a.Lines,
			DurationMS: a.Duration.Milliseconds(),
		}
		if a.Err != nil {
			ar.Error = a.Err.Error()
		}
		resp.Attempts = append(resp.Attempts, ar)
	}
	if res.Keys != nil {
		resp.BACKeys = &BACKeysResponse{Kenc: res.Keys.EncHex(), Kmac: res.Keys.MacHex()}
	}
	if res.KeyErr != nil {
		resp.BACError = res.KeyErr.Error()
	}
	return resp
}

func fromRecord(r *mrz.Record, cleaned []string) *ParsedResponse {
	return &ParsedResponse{
		DocumentType:   r.DocumentType,
		IssuingCountry: r.IssuingState,
		Surname:        r.Surname,
		GivenNames:     r.GivenNames,
		Nationality:    r.Nationality,
		Sex:            r.Sex,

		DocumentNumber:      r.DocumentNumber.Text(),
		DocumentNumberCheck: string(r.DocumentNumber.Check),
		DocumentNumberValid: r.DocumentNumber.Valid,

		BirthDate:      r.BirthDate.Value,
		BirthDateISO:   mrz.ISODate(r.BirthDate.Value),
		BirthDateCheck: string(r.BirthDate.Check),
		BirthDateValid: r.BirthDate.Valid,

		ExpiryDate:      r.ExpiryDate.Value,
		ExpiryDateISO:   mrz.ISODate(r.ExpiryDate.Value),
		ExpiryDateCheck: string(r.ExpiryDate.Check),
		ExpiryDateValid: r.ExpiryDate.Valid,

		PersonalNumber:      r.PersonalNumber.Text(),
		PersonalNumberCheck: string(r.PersonalNumber.Check),
		PersonalNumberValid: r.PersonalNumber.Valid,

		CompositeCheck: string(r.CompositeCheck),
		CompositeValid: r.CompositeValid,
		Valid:          r.Valid(),

		RawLines:     []string{r.Lines[0], r.Lines[1]},
		CleanedLines: cleaned,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
