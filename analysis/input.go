package analysis

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-foodscore/api"
	"github.com/pkg/errors"
)

// Image is one photographed label
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// LoadImage reads an image from disk
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "[LoadImage] %s", path)
	}
	if len(data) == 0 {
		return nil, errors.Errorf("[LoadImage] %s is empty", path)
	}
	return &Image{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

func (i *Image) upload() api.Upload {
	return api.Upload{Filename: i.Filename, ContentType: i.ContentType, Data: i.Data}
}

// ScanInput is the scan-mode submission: a photo of the nutrition facts and one of the
// ingredients list.
type ScanInput struct {
	NutritionImage   *Image
	IngredientsImage *Image
}

// Ready reports whether both images are present
func (in ScanInput) Ready() bool {
	return present(in.NutritionImage) && present(in.IngredientsImage)
}

func present(img *Image) bool {
	return img != nil && len(img.Data) > 0
}

// ManualInput is the manual-entry form. Values are passed to the backend as typed.
type ManualInput struct {
	Calories      string
	Protein       string
	Fats          string
	Carbohydrates string
	Sugar         string
	Sodium        string
	SaturatedFat  string
	TransFat      string
	Cholesterol   string
	Ingredients   string
}

func (in ManualInput) request() api.ManualEntryRequest {
	return api.ManualEntryRequest{
		IngredientsText: strings.TrimSpace(in.Ingredients),
		NutritionData: api.NutritionInput{
			Calories:      strings.TrimSpace(in.Calories),
			Protein:       strings.TrimSpace(in.Protein),
			Fats:          strings.TrimSpace(in.Fats),
			Carbohydrates: strings.TrimSpace(in.Carbohydrates),
			Sugar:         strings.TrimSpace(in.Sugar),
			Sodium:        strings.TrimSpace(in.Sodium),
			SaturatedFat:  strings.TrimSpace(in.SaturatedFat),
			TransFat:      strings.TrimSpace(in.TransFat),
			Cholesterol:   strings.TrimSpace(in.Cholesterol),
		},
	}
}
