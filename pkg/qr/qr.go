package qr

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// DataURL renders content as a QR code PNG and returns it as a data URL
// suitable for direct embedding in an <img> tag.
func DataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, imageSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
