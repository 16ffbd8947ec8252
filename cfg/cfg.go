package cfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

// Load 从文件加载配置到 object
// 根据扩展名选择解码器（.yaml/.yml、.toml、.json），
// 之后依次执行字段映射、默认值填充和校验
func Load(path string, object any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s failed", path)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return LoadBytes(data, format, object)
}

// LoadBytes 按指定格式解码配置内容
func LoadBytes(data []byte, format string, object any) error {
	raw, err := unmarshal(data, format)
	if err != nil {
		return err
	}

	if err := Decode(raw, object); err != nil {
		return err
	}
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	if err := Validate(object); err != nil {
		return errors.WithMessage(err, "validate config failed")
	}
	return nil
}

func unmarshal(data []byte, format string) (map[string]any, error) {
	raw := map[string]any{}

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "decode yaml failed")
		}
	case "toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, errors.Wrap(err, "decode toml failed")
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "decode json failed")
		}
	default:
		return nil, errors.WithMessagef(ErrUnsupportedFormat, "format %q", format)
	}

	return raw, nil
}

// Decode 将通用数据（通常是 map）映射到带 cfg tag 的结构体
// 字符串可以转换为 time.Duration，逗号分隔的字符串可以转换为切片
func Decode(input any, object any) error {
	if object == nil {
		return errors.New("object cannot be nil")
	}
	if rv := reflect.ValueOf(object); rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "cfg",
		WeaklyTypedInput: true,
		Result:           object,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.Wrap(err, "create decoder failed")
	}

	if err := decoder.Decode(input); err != nil {
		return errors.Wrap(err, "decode config failed")
	}
	return nil
}
