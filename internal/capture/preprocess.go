package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MinSide 是输出图片每条边的最小像素数，已经更大的边保持不变
	MinSide = 2048

	// 高光和阴影阈值，均为闭区间
	highlightThreshold = 200
	shadowThreshold    = 50

	// MaxPixels 是允许解码的最大像素数，在分配像素缓冲之前检查
	MaxPixels = 40_000_000

	jpegQuality = 100
	jpegMIME    = "image/jpeg"
)

// CanonicalImage 是预处理后准备发送给识别服务的图片
type CanonicalImage struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

var dataURIPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// StripDataURIPrefix 去掉 data:image/<type>;base64, 前缀，没有前缀时原样返回
func StripDataURIPrefix(s string) string {
	return dataURIPrefix.ReplaceAllString(s, "")
}

// DecodeDataURI 解析 data URI 或裸Base64字符串，得到原始图片字节
func DecodeDataURI(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(StripDataURIPrefix(strings.TrimSpace(s)))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("Base64解码失败: %w", err)}
	}
	return raw, nil
}

// Stretch 对单个颜色通道做固定的对比度拉伸
func Stretch(v uint8) uint8 {
	switch {
	case v >= highlightThreshold:
		return 255
	case v <= shadowThreshold:
		return 0
	default:
		return v
	}
}

// targetSize 把每条边放大到至少 MinSide，从不缩小
func targetSize(w, h int) (int, int) {
	return max(w, MinSide), max(h, MinSide)
}

// NormalizeImage 解码任意支持格式的图片，放大到至少 MinSide×MinSide，
// 拉伸对比度后以最高质量编码为JPEG。
// 透明区域先铺白底，因为JPEG没有透明通道。ctx 取消时在各步骤之间放弃处理。
func NormalizeImage(ctx context.Context, raw []byte) (*CanonicalImage, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Err: errors.New("图片为空")}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, &DecodeError{Err: fmt.Errorf("图片像素过多: %dx%d", cfg.Width, cfg.Height)}
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, &DecodeError{Err: errors.New("图片尺寸为0")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := targetSize(b.Dx(), b.Dy())
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stretchContrast(dst)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return &CanonicalImage{Data: buf.Bytes(), MIMEType: jpegMIME, Width: w, Height: h}, nil
}

// stretchContrast 逐像素处理RGB三个通道，alpha 不变
func stretchContrast(img *image.RGBA) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = Stretch(pix[i])
		pix[i+1] = Stretch(pix[i+1])
		pix[i+2] = Stretch(pix[i+2])
	}
}
