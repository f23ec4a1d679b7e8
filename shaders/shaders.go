// Package shaders holds the WGSL sources as constants, compiled by the gpu
// package at pipeline creation.
package shaders

// MaxCascades fixes the array sizes in the forward shader. The Go side may
// configure fewer; unused slots carry a far plane of 0 and never match.
const MaxCascades = 4

// DepthOnlyWGSL renders geometry into a cascade depth texture. There is no
// fragment stage output; the depth attachment is the result.
const DepthOnlyWGSL = `
struct DepthUniforms {
    mvp: mat4x4<f32>,
};

@group(0) @binding(0) var<uniform> u: DepthUniforms;

@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return u.mvp * vec4<f32>(pos, 1.0);
}
`

// ForwardWGSL shades visible geometry with one directional light and the
// cascade shadow maps. Cascade selection MUST agree with the CPU side
// (shadow.SelectCascade): the first cascade whose far plane exceeds the
// fragment's view-space depth wins, and a fragment beyond every far plane
// is fully lit.
const ForwardWGSL = `
struct SceneUniforms {
    view: mat4x4<f32>,
    proj: mat4x4<f32>,
    cascade_vp: array<mat4x4<f32>, 4>,
    cascade_far: vec4<f32>,
    light_dir: vec4<f32>,
    light_color: vec4<f32>,
    cascade_count: u32,
    shadow_bias: f32,
    _pad0: f32,
    _pad1: f32,
};

struct ModelUniforms {
    world: mat4x4<f32>,
    color: vec4<f32>,
};

@group(0) @binding(0) var<uniform> scene: SceneUniforms;
@group(0) @binding(1) var shadow_maps: texture_depth_2d_array;
@group(0) @binding(2) var shadow_sampler: sampler_comparison;

@group(1) @binding(0) var<uniform> model: ModelUniforms;

struct VertexOut {
    @builtin(position) clip_pos: vec4<f32>,
    @location(0) world_pos: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) view_depth: f32,
};

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) normal: vec3<f32>) -> VertexOut {
    var out: VertexOut;
    let world = model.world * vec4<f32>(pos, 1.0);
    let view_pos = scene.view * world;
    out.clip_pos = scene.proj * view_pos;
    out.world_pos = world.xyz;
    out.normal = normalize((model.world * vec4<f32>(normal, 0.0)).xyz);
    out.view_depth = -view_pos.z;
    return out;
}

fn select_cascade(depth: f32) -> i32 {
    for (var i = 0u; i < scene.cascade_count; i = i + 1u) {
        if (depth < scene.cascade_far[i]) {
            return i32(i);
        }
    }
    return -1;
}

fn shadow_factor(world_pos: vec3<f32>, view_depth: f32) -> f32 {
    let idx = select_cascade(view_depth);
    if (idx < 0) {
        // Beyond shadow range: fully lit, never fatal.
        return 1.0;
    }

    let light_pos = scene.cascade_vp[idx] * vec4<f32>(world_pos, 1.0);
    let ndc = light_pos.xyz / light_pos.w;
    let uv = vec2<f32>(ndc.x * 0.5 + 0.5, 0.5 - ndc.y * 0.5);
    if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
        return 1.0;
    }

    // The gpu package uploads clip-corrected matrices, so ndc.z is already
    // in [0, 1] like the stored depth.
    let depth_ref = ndc.z - scene.shadow_bias;
    return textureSampleCompareLevel(shadow_maps, shadow_sampler, uv, idx, depth_ref);
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    let n = normalize(in.normal);
    let l = normalize(-scene.light_dir.xyz);
    let diffuse = max(dot(n, l), 0.0);

    let shadow = shadow_factor(in.world_pos, in.view_depth);
    let ambient = 0.15;
    let lit = ambient + diffuse * shadow * scene.light_color.w;

    return vec4<f32>(model.color.rgb * scene.light_color.rgb * lit, model.color.a);
}
`
