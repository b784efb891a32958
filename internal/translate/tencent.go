package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// 腾讯云文本翻译单次请求的长度上限。
const tencentMaxChars = 6000

// textTranslateAPI 是 tmt.Client 中用到的方法，便于测试替换。
type textTranslateAPI interface {
	TextTranslateWithContext(ctx context.Context, request *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error)
}

// TencentTranslator 腾讯云机器翻译。整段文本一次请求，换行和标签原样保留。
type TencentTranslator struct {
	client textTranslateAPI
	target string
}

// NewTencentTranslator 创建腾讯云翻译器。
func NewTencentTranslator(secretID, secretKey, region, target string) (*TencentTranslator, error) {
	if secretID == "" || secretKey == "" {
		return &TencentTranslator{target: langCode(target)}, nil
	}

	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tmt.tencentcloudapi.com"

	client, err := tmt.NewClient(credential, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("创建翻译客户端失败: %w", err)
	}

	logger.Info("[translate] 腾讯云翻译已初始化")
	return &TencentTranslator{client: client, target: langCode(target)}, nil
}

// Translate 实现 Translator 接口。
func (t *TencentTranslator) Translate(ctx context.Context, kind Kind, text string) (string, error) {
	const op = "translate.tencent"
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.Validation(op, "待翻译内容不能为空")
	}
	if kind != StoryScript && kind != Podcast {
		return "", errs.Validation(op, fmt.Sprintf("未知的翻译类型: %s", kind))
	}
	if len([]rune(text)) > tencentMaxChars {
		return "", errs.Validation(op, fmt.Sprintf("文本过长，最多 %d 字符", tencentMaxChars))
	}
	if t.client == nil {
		return "", errs.Config(op, "未配置腾讯云密钥")
	}

	request := tmt.NewTextTranslateRequest()
	request.SourceText = common.StringPtr(text)
	request.Source = common.StringPtr("auto")
	request.Target = common.StringPtr(t.target)
	request.ProjectId = common.Int64Ptr(0)

	response, err := t.client.TextTranslateWithContext(ctx, request)
	if err != nil {
		return "", errs.Upstream(op, fmt.Errorf("翻译请求失败: %w", err))
	}
	if response.Response == nil || response.Response.TargetText == nil {
		return "", errs.Upstreamf(op, "翻译响应为空")
	}

	result := *response.Response.TargetText
	logger.Debugf("[translate] 腾讯云翻译完成: %s -> %s, %d 字符", kind, t.target, len([]rune(result)))
	return result, nil
}
