/*
Copyright 2025 The Organization Manager contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tokens

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	protoPackage = "metadatastore"
	serviceName  = "MetadataStoreService"
	methodName   = "CreateInternalApiToken"

	// CreateInternalAPITokenMethod is the full gRPC method name.
	CreateInternalAPITokenMethod = "/" + protoPackage + "." + serviceName + "/" + methodName
)

// Field names shared by the request and response messages.
const (
	fieldOrganizationID = "organization_id"
	fieldUserID         = "user_id"
	fieldTokenID        = "token_id"
	fieldValidTo        = "valid_to"
	fieldToken          = "token"
	fieldSeconds        = "seconds"
)

type descriptors struct {
	request  protoreflect.MessageDescriptor
	response protoreflect.MessageDescriptor
}

func stringField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   &name,
		Number: &number,
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
	}
}

func messageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     &name,
		Number:   &number,
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: &typeName,
	}
}

func ptr[T any](v T) *T {
	return &v
}

// fileDescriptor describes the metadata store token API. The
// google.protobuf.Timestamp dependency is resolved from the global registry,
// populated by the timestamppb import.
func fileDescriptor() *descriptorpb.FileDescriptorProto {
	request := &descriptorpb.DescriptorProto{
		Name: ptr("ApiTokenRequest"),
		Field: []*descriptorpb.FieldDescriptorProto{
			stringField(fieldOrganizationID, 1),
			stringField(fieldUserID, 2),
			stringField(fieldTokenID, 3),
			messageField(fieldValidTo, 4, ".google.protobuf.Timestamp"),
		},
	}
	response := &descriptorpb.DescriptorProto{
		Name: ptr("ApiToken"),
		Field: []*descriptorpb.FieldDescriptorProto{
			stringField(fieldOrganizationID, 1),
			stringField(fieldUserID, 2),
			stringField(fieldTokenID, 3),
			stringField(fieldToken, 4),
		},
	}

	return &descriptorpb.FileDescriptorProto{
		Name:        ptr("metadatastore/api_token.proto"),
		Package:     ptr(protoPackage),
		Syntax:      ptr("proto3"),
		Dependency:  []string{timestamppb.File_google_protobuf_timestamp_proto.Path()},
		MessageType: []*descriptorpb.DescriptorProto{request, response},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: ptr(serviceName),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       ptr(methodName),
				InputType:  ptr("." + protoPackage + ".ApiTokenRequest"),
				OutputType: ptr("." + protoPackage + ".ApiToken"),
			}},
		}},
	}
}

func buildDescriptors() (*descriptors, error) {
	fd, err := protodesc.NewFile(fileDescriptor(), protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to build token API descriptor: %w", err)
	}

	method := fd.Services().ByName(serviceName).Methods().ByName(methodName)
	if method == nil {
		return nil, fmt.Errorf("method %s not found in token API descriptor", methodName)
	}

	return &descriptors{
		request:  method.Input(),
		response: method.Output(),
	}, nil
}
