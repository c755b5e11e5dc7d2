package mediahost

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Fixed values the media host expects for community image uploads.
const (
	BizCommunity          = "community"
	UploadSourceCommunity = "UPLOAD_SOURCE_COMMUNITY"
	DefaultObjectACL      = "default"

	callbackExtraField = "x:extra"
)

// ParamsRequest identifies the file a signed upload is requested for.
type ParamsRequest struct {
	MD5 string
	Ext string
}

type paramsRequestBody struct {
	MD5                  string            `json:"md5"`
	Ext                  string            `json:"ext"`
	Biz                  string            `json:"biz"`
	SupportContentType   bool              `json:"support_content_type"`
	SupportExtraFormData bool              `json:"support_extra_form_data"`
	Extra                map[string]string `json:"extra"`
}

func newParamsRequestBody(req ParamsRequest) paramsRequestBody {
	return paramsRequestBody{
		MD5:                  req.MD5,
		Ext:                  req.Ext,
		Biz:                  BizCommunity,
		SupportContentType:   true,
		SupportExtraFormData: true,
		Extra:                map[string]string{"upload_source": UploadSourceCommunity},
	}
}

// FormField is one extra key/value pair the storage endpoint wants echoed back.
type FormField struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// UploadParams are the signed credentials returned by the negotiation call.
type UploadParams struct {
	Host        string            `json:"host" validate:"required,url"`
	Name        string            `json:"name" validate:"required"`
	Dir         string            `json:"dir"`
	Policy      string            `json:"policy" validate:"required"`
	AccessID    string            `json:"accessid" validate:"required"`
	Signature   string            `json:"signature" validate:"required"`
	Callback    string            `json:"callback" validate:"required"`
	CallbackVar map[string]string `json:"callback_var" validate:"required"`
	ContentType string            `json:"x_oss_content_type"`
	ExtraForm   []FormField       `json:"extra_form_data" validate:"dive"`
	ObjectACL   string            `json:"object_acl"`
}

// Key is the full object key: directory prefix followed by object name.
func (p *UploadParams) Key() string {
	return p.Dir + p.Name
}

// Validate checks that every field the direct upload needs is present.
func (p *UploadParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
			return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if _, ok := p.CallbackVar[callbackExtraField]; !ok {
		return fmt.Errorf("%w: callback_var missing %s", ErrInvalidParams, callbackExtraField)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())
