// dlist uses flags and a single config file for configuration.
// A config file is stored in .txtpb format and contains the values that can be set via flags. Its schema is the
// Config message below, where every leaf field is named after the flag it sets.

package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

var configFilePath = flag.String("config_file", "config.txtpb", "Path to the configuration file.")

func optionalField(name string, number int32, kind descriptorpb.FieldDescriptorProto_Type,
	typeName string) *descriptorpb.FieldDescriptorProto {
	field := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   kind.Enum(),
	}
	if typeName != "" {
		field.TypeName = proto.String(typeName)
	}
	return field
}

// configFileProto describes config.proto, the schema of config files.
func configFileProto() *descriptorpb.FileDescriptorProto {
	const (
		stringType   = descriptorpb.FieldDescriptorProto_TYPE_STRING
		int64Type    = descriptorpb.FieldDescriptorProto_TYPE_INT64
		boolType     = descriptorpb.FieldDescriptorProto_TYPE_BOOL
		messageType  = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
		durationName = ".google.protobuf.Duration"
	)
	message := func(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
		return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
	}
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String("dlist/config.proto"),
		Package:    proto.String("dlist.config"),
		Syntax:     proto.String("proto2"),
		Dependency: []string{"google/protobuf/duration.proto"},
		MessageType: []*descriptorpb.DescriptorProto{
			message("Config",
				optionalField("logging", 1, messageType, ".dlist.config.Logging"),
				optionalField("server", 2, messageType, ".dlist.config.Server"),
				optionalField("keys", 3, messageType, ".dlist.config.Keys")),
			message("Logging",
				optionalField("log_handler_type", 1, stringType, ""),
				optionalField("log_level", 2, stringType, "")),
			message("Server",
				optionalField("address", 1, stringType, ""),
				optionalField("metrics_address", 2, stringType, "")),
			message("Keys",
				optionalField("key_cache_policy", 1, stringType, ""),
				optionalField("key_capacity", 2, int64Type, ""),
				optionalField("key_shard_count", 3, int64Type, ""),
				optionalField("key_ttl", 4, messageType, durationName),
				optionalField("key_tick_interval", 5, messageType, durationName),
				optionalField("key_doorkeeper", 6, boolType, "")),
		},
	}
}

// configDescriptor returns the descriptor of the Config message.
var configDescriptor = sync.OnceValues(func() (protoreflect.MessageDescriptor, error) {
	// The schema imports google/protobuf/duration.proto, which durationpb registers globally.
	file, err := protodesc.NewFile(configFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to build config.proto: %w", err)
	}
	return file.Messages().ByName("Config"), nil
})

// parseConfig parses a .txtpb config.
func parseConfig(configBytes []byte) (protoreflect.Message, error) {
	md, err := configDescriptor()
	if err != nil {
		return nil, err
	}
	conf := dynamicpb.NewMessage(md)
	if err := prototext.Unmarshal(configBytes, conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return conf, nil
}

// loadConfigFile applies the config file at `path` to the flags.
func loadConfigFile(path string) error {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	conf, err := parseConfig(configBytes)
	if err != nil {
		return err
	}
	if err := setConfigFlags(conf); err != nil {
		return fmt.Errorf("failed to set flags from config file: %w", err)
	}
	return nil
}

// InitFlags initializes the flags from the config file specified by the -config_file flag.
// It should be called after defining all flags and before using them.
// Values given in the config file take precedence over the command line.
func InitFlags() {
	flag.Parse()

	if *configFilePath == "" {
		slog.Info("Config file not specified. Skipping config initialization.")
		return
	}
	err := loadConfigFile(*configFilePath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Config file does not exist.", "path", *configFilePath, "error", err)
		return
	}
	if err != nil { // If the config file cannot be applied, we skip loading and use the current flag values.
		slog.Error("Failed to load config file.", "path", *configFilePath, "error", err)
	}
}
